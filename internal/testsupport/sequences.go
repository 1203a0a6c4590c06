package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// seq feeds the Unique* helpers. Seeded from the clock so names from separate
// test binaries hitting the same database never collide.
var seq atomic.Uint64

func init() {
	seq.Store(uint64(time.Now().UnixNano() % 1_000_000))
}

// UniqueName returns an identifier safe to embed in SQL, for example a temp
// table name: UniqueName("tmp_test") -> "tmp_test_482113".
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, seq.Add(1))
}

// UniqueSymbol returns a synthetic trading symbol owned by one test.
// Repository tests isolate rows with it: each test writes under its own
// symbol, so leftover rows from earlier runs never match its queries.
func UniqueSymbol(base string) string {
	return fmt.Sprintf("%s_%d", base, seq.Add(1))
}

// UniqueRunID returns an optimization run identifier. The uuid fragment keeps
// it unique even across processes that happen to share a counter value.
func UniqueRunID() string {
	return fmt.Sprintf("run_%d_%s", seq.Add(1), uuid.New().String()[:8])
}
