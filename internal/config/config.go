// Package config parses and validates runtime startup configuration, in
// the teacher's internal/ctrl validate-then-apply-defaults idiom
// (DeviceParams/DefaultDeviceParams generalized here to domain/thread/
// table topology instead of a block device's queue parameters).
package config

import (
	"flag"
	"fmt"
	"runtime"
)

// RuntimeConfig configures a Runtime: how many domains and threads per
// domain it runs, how its rings are sized, and how its hash table is
// partitioned and budgeted.
type RuntimeConfig struct {
	NumDomains       int
	ThreadsPerDomain int

	ThreadRingCapacity int
	DomainRingCapacity int

	TablePartitions  int
	TableCapacityMax int
	TableVolume      int64

	// PinThreads mirrors the teacher's CPUAffinity device param. It is
	// parsed and kept in the config, but the runtime does not read it: no
	// thread is locked to an OS thread or affinitized to a CPU.
	PinThreads bool
}

// DefaultRuntimeConfig returns a RuntimeConfig sized to the host's CPU
// count, one domain with one thread per core, partitions matching
// threads (the SMP partition-per-core production mode).
func DefaultRuntimeConfig() RuntimeConfig {
	cpus := runtime.NumCPU()
	return RuntimeConfig{
		NumDomains:         1,
		ThreadsPerDomain:   cpus,
		ThreadRingCapacity: 1024,
		DomainRingCapacity: 4096,
		TablePartitions:    cpus,
		TableCapacityMax:   1 << 20,
		TableVolume:        64 << 20,
		PinThreads:         false,
	}
}

// Validate rejects a config with nonsensical topology before it reaches
// runtime construction, mirroring the teacher's validate-then-apply-
// defaults control-path style.
func (c RuntimeConfig) Validate() error {
	if c.NumDomains <= 0 {
		return fmt.Errorf("config: NumDomains must be positive, got %d", c.NumDomains)
	}
	if c.ThreadsPerDomain <= 0 {
		return fmt.Errorf("config: ThreadsPerDomain must be positive, got %d", c.ThreadsPerDomain)
	}
	if c.ThreadRingCapacity <= 0 {
		return fmt.Errorf("config: ThreadRingCapacity must be positive, got %d", c.ThreadRingCapacity)
	}
	if c.DomainRingCapacity <= 0 {
		return fmt.Errorf("config: DomainRingCapacity must be positive, got %d", c.DomainRingCapacity)
	}
	if c.TablePartitions <= 0 {
		return fmt.Errorf("config: TablePartitions must be positive, got %d", c.TablePartitions)
	}
	if c.TableVolume <= 0 {
		return fmt.Errorf("config: TableVolume must be positive, got %d", c.TableVolume)
	}
	return nil
}

// RegisterFlags binds fs's flags to fields of c, applying
// DefaultRuntimeConfig's values as the flags' defaults. Call Validate
// after fs.Parse.
func (c *RuntimeConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.NumDomains, "domains", c.NumDomains, "number of scheduling domains")
	fs.IntVar(&c.ThreadsPerDomain, "threads", c.ThreadsPerDomain, "fiber threads per domain")
	fs.IntVar(&c.ThreadRingCapacity, "thread-ring-capacity", c.ThreadRingCapacity, "per-thread request ring capacity")
	fs.IntVar(&c.DomainRingCapacity, "domain-ring-capacity", c.DomainRingCapacity, "domain-wide request ring capacity")
	fs.IntVar(&c.TablePartitions, "table-partitions", c.TablePartitions, "hash table partition count")
	fs.IntVar(&c.TableCapacityMax, "table-capacity-max", c.TableCapacityMax, "max buckets per partition")
	fs.Int64Var(&c.TableVolume, "table-volume", c.TableVolume, "total byte budget across all partitions before eviction")
	fs.BoolVar(&c.PinThreads, "pin-threads", c.PinThreads, "affinitize each fiber thread to a distinct CPU (accepted but not applied)")
}
