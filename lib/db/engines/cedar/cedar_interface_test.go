package cedar

import (
	"testing"
	"time"

	"github.com/ValentinKolb/sKV/lib/db"
	dbtesting "github.com/ValentinKolb/sKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "CedarDB", func(clock func() time.Time) db.KVDB {
		return NewCedarDB(&DBOptions{Clock: clock})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "CedarDB", func(clock func() time.Time) db.KVDB {
		return NewCedarDB(&DBOptions{Clock: clock})
	})
}
