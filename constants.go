package mainmemory

import "github.com/ademakov/MainMemory-sub000/internal/constants"

// Re-exported tunables, so callers wiring a Runtime rarely need to import
// internal/constants directly.
const (
	PriorityBoot    = constants.PriorityBoot
	PriorityIdle    = constants.PriorityIdle
	PriorityDealer  = constants.PriorityDealer
	PriorityMaster  = constants.PriorityMaster
	PriorityWorker  = constants.PriorityWorker
	PriorityUser    = constants.PriorityUser
	PriorityLow     = constants.PriorityLow
	PriorityIdleLow = constants.PriorityIdleLow

	MinRingCapacity           = constants.MinRingCapacity
	DefaultThreadRingCapacity = constants.DefaultThreadRingCapacity
	DefaultDomainRingCapacity = constants.DefaultDomainRingCapacity

	TableStride        = constants.TableStride
	DefaultPartitions  = constants.DefaultPartitions
	DefaultTableVolume = constants.DefaultTableVolume
	EvictionYieldBatch = constants.EvictionYieldBatch

	DefaultMaxWorkers = constants.DefaultMaxWorkers

	ArenaBucket4K   = constants.ArenaBucket4K
	ArenaBucket16K  = constants.ArenaBucket16K
	ArenaBucket64K  = constants.ArenaBucket64K
	ArenaBucket256K = constants.ArenaBucket256K

	MinChunkSize = constants.MinChunkSize
	MaxChunkSize = constants.MaxChunkSize
)
