package kv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/db/engines/cedar"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/lstore"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for sKV servers",
		Long:    "Runs parallel benchmarks of the string and sorted set commands. With --embedded the keyspace runs in this process, which measures the keyspace without the network.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
	perfEmbedded         = false
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines per CPU to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "embedded"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Benchmark an in-process keyspace instead of a server"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = lo.Compact(strings.Split(viper.GetString("skip"), ","))
	perfEmbedded = viper.GetBool("embedded")

	return nil
}

// benchResult is the outcome of one benchmark
type benchResult struct {
	testing.BenchmarkResult
	latency gometrics.Timer // latency of the single operations
	errors  int64
	skipped bool
}

// benchmark describes one parallel benchmark against the store
type benchmark struct {
	name  string
	setup func(s store.IStore, keys []string) error // runs before the timer starts
	op    func(s store.IStore, key string, i int) error
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Performance testing tool for sKV servers")

	var s store.IStore
	var err error
	if perfEmbedded {
		s = lstore.NewLocalStore(func() db.KVDB { return cedar.NewCedarDB(nil) })
	} else {
		s, err = connectStore()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	defer s.Close()

	// Print configuration
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	if perfEmbedded {
		fmt.Fprintln(out, "Embedded keyspace")
	} else {
		fmt.Fprintln(out, util.GetClientConfig().String())
	}
	fmt.Fprintf(out, "Threads: %d\n", perfNumThreads)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "starting tests...")

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	fill := func(s store.IStore, keys []string) error {
		for _, k := range keys {
			if err := s.Set(k, []byte("test")); err != nil {
				return err
			}
		}
		return nil
	}
	fillZSet := func(s store.IStore, keys []string) error {
		for i, k := range keys {
			if _, err := s.ZAdd(perfKeyPrefix+"-zset", float64(i), k); err != nil {
				return err
			}
		}
		return nil
	}

	benchmarks := []benchmark{
		{name: "set", op: func(s store.IStore, key string, _ int) error {
			return s.Set(key, []byte("test"))
		}},
		{name: "set-large", op: func(s store.IStore, key string, _ int) error {
			return s.Set(key, largeValue)
		}},
		{name: "get", setup: fill, op: func(s store.IStore, key string, _ int) error {
			_, _, err := s.Get(key)
			return err
		}},
		{name: "del", setup: fill, op: func(s store.IStore, key string, _ int) error {
			_, err := s.Delete(key)
			return err
		}},
		{name: "pexpire", setup: fill, op: func(s store.IStore, key string, _ int) error {
			_, err := s.PExpire(key, time.Minute)
			return err
		}},
		{name: "zadd", op: func(s store.IStore, key string, i int) error {
			_, err := s.ZAdd(perfKeyPrefix+"-zset", float64(i), key)
			return err
		}},
		{name: "zscore", setup: fillZSet, op: func(s store.IStore, key string, _ int) error {
			_, _, err := s.ZScore(perfKeyPrefix+"-zset", key)
			return err
		}},
		{name: "zquery", setup: fillZSet, op: func(s store.IStore, _ string, i int) error {
			_, err := s.ZQuery(perfKeyPrefix+"-zset", float64(i%perfKeySpread), "", 0, 10)
			return err
		}},
		{name: "mixed", setup: fill, op: func(s store.IStore, key string, i int) error {
			var err error
			switch i % 4 {
			case 0: // set
				err = s.Set(key, []byte("test"))
			case 1: // get
				_, _, err = s.Get(key)
			case 2: // delete
				_, err = s.Delete(key)
			case 3: // ttl
				_, err = s.PTTL(key)
			}
			return err
		}},
	}

	errorCounts := xsync.NewMapOf[string, *xsync.Counter]()
	results := make(map[string]benchResult)
	for _, bench := range benchmarks {
		result := runBenchmark(s, bench, errorCounts)
		results[bench.name] = result
		printResult(out, bench.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// runBenchmark runs bench with testing.Benchmark and records the latency of each operation
func runBenchmark(s store.IStore, bench benchmark, errorCounts *xsync.MapOf[string, *xsync.Counter]) benchResult {
	if lo.Contains(perfSkip, bench.name) {
		return benchResult{skipped: true, latency: gometrics.NewTimer()}
	}

	keys := getKeys(bench.name)
	latency := gometrics.NewTimer()
	errCount, _ := errorCounts.LoadOrCompute(bench.name, xsync.NewCounter)

	result := testing.Benchmark(func(b *testing.B) {
		if bench.setup != nil {
			if err := bench.setup(s, keys); err != nil {
				errCount.Inc()
			}
		}

		// cleanup
		b.Cleanup(func() {
			for _, k := range append(keys, perfKeyPrefix+"-zset") {
				if _, err := s.Delete(k); err != nil {
					errCount.Inc()
				}
			}
		})

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := bench.op(s, keys[counter%len(keys)], counter); err != nil {
					errCount.Inc()
				}
				latency.UpdateSince(start)
				counter++
			}
		})
	})

	return benchResult{
		BenchmarkResult: result,
		latency:         latency,
		errors:          errCount.Value(),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// getKeys creates the test keys of a benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(out io.Writer, test string, result benchResult) {
	if result.skipped || result.NsPerOp() == 0 {
		fmt.Fprintf(out, "%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	ps := result.latency.Percentiles([]float64{0.5, 0.99})

	// Print the formatted result
	fmt.Fprintf(out, "%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\terrors %d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(ps[0]), time.Duration(ps[1]), result.errors)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]benchResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Transport", "Embedded",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write test results
	for _, test := range lo.Keys(results) {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64

		skipped := result.skipped || result.NsPerOp() == 0
		if !skipped {
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		ps := result.latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strconv.FormatInt(result.errors, 10),
			strconv.FormatBool(skipped),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			viper.GetString("transport"),
			strconv.FormatBool(perfEmbedded),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	return nil
}
