package lock

import (
	"fmt"
	"log"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reslock/reslock/cmd/util"
	"github.com/reslock/reslock/lib/lock"
	"github.com/reslock/reslock/lib/manager"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for lock servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfResourceType = "__perf"
	perfNumThreads   = 10
	perfSpread       = 100
)

func init() {
	key := "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "resources"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different resources to spread the operations over"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfSpread = viper.GetInt("resources")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for lock servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Resources: %d\n", perfSpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Each thread cycles acquire and release over its own resource range,
	// so every acquire wins and the benchmark measures the full round trip.
	cycleResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				res := lock.NewResourceRef(perfResourceType, "cycle-"+strconv.Itoa(counter%perfSpread))
				user := "perf-" + strconv.Itoa(counter%perfSpread)

				result, err := rpcLockMgr.Acquire(res, user, manager.AcquireOptions{})
				if err != nil {
					log.Printf("(cycle) - error acquiring lock: %v\n", err)
					continue
				}
				if result.IsSuccessful() {
					if _, err := rpcLockMgr.Release(res, user); err != nil {
						log.Printf("(cycle) - error releasing lock: %v\n", err)
					}
				}
				counter++
			}
		})
	})
	printResult("acquire-release", cycleResult)

	// All threads fight over one resource; throughput shows how fast the
	// server turns down contended acquires.
	contendedResult := testing.Benchmark(func(b *testing.B) {
		res := lock.NewResourceRef(perfResourceType, "contended")
		if _, err := rpcLockMgr.Acquire(res, "perf-holder", manager.AcquireOptions{}); err != nil {
			log.Printf("(contended) - error acquiring holder lock: %v\n", err)
		}
		b.Cleanup(func() {
			if _, err := rpcLockMgr.ForceRelease(res, "perf-holder"); err != nil {
				log.Printf("(contended) - error cleaning up: %v\n", err)
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := rpcLockMgr.Acquire(res, "perf-challenger-"+strconv.Itoa(counter), manager.AcquireOptions{}); err != nil {
					log.Printf("(contended) - error acquiring lock: %v\n", err)
				}
				counter++
			}
		})
	})
	printResult("acquire-contended", contendedResult)

	// Read path over the contended resource.
	queryResult := testing.Benchmark(func(b *testing.B) {
		res := lock.NewResourceRef(perfResourceType, "query")
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcLockMgr.IsLocked(res); err != nil {
					log.Printf("(query) - error querying lock: %v\n", err)
				}
			}
		})
	})
	printResult("is-locked", queryResult)

	return nil
}

// printResult formats one benchmark result for the terminal
func printResult(test string, result testing.BenchmarkResult) {
	nsPerOp := float64(result.T.Nanoseconds()) / float64(result.N)
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Format the time per operation with appropriate units
	var timePerOpStr string
	if nsPerOp < 1000 {
		timePerOpStr = fmt.Sprintf("%.2f ns/op", nsPerOp)
	} else if nsPerOp < 1000000 {
		timePerOpStr = fmt.Sprintf("%.2f µs/op", nsPerOp/1000)
	} else if nsPerOp < 1000000000 {
		timePerOpStr = fmt.Sprintf("%.2f ms/op", nsPerOp/1000000)
	} else {
		timePerOpStr = fmt.Sprintf("%.2f s/op", nsPerOp/1000000000)
	}

	fmt.Printf("%-20s\t%s\t%.2f ops/sec\tAllocs: %d, AllocBytes: %d\n",
		test, timePerOpStr, opsPerSec, result.AllocsPerOp(), result.AllocedBytesPerOp())
}
