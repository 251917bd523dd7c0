package testkit

import (
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/kbukum/gotemplate/logger"
)

// EnvSeed pins the process seed, e.g. TEST_SEED=42 go test ./...
const EnvSeed = "TEST_SEED"

var (
	seedOnce     sync.Once
	processSeed  int64
	factoryCount atomic.Int64
)

// ProcessSeed returns the seed factories derive theirs from. It is read
// from TEST_SEED or drawn at random, once per process, and logged so a
// failing run can be repeated.
func ProcessSeed() int64 {
	seedOnce.Do(func() {
		log := logger.WithComponent("testkit")
		if raw := os.Getenv(EnvSeed); raw != "" {
			seed, err := strconv.ParseInt(raw, 10, 64)
			if err == nil {
				processSeed = seed
				log.Info("Using pinned factory seed", logger.Fields(logger.FieldSeed, seed))
				return
			}
			log.Warn("Ignoring invalid seed", logger.Fields(EnvSeed, raw, logger.FieldError, err.Error()))
		}
		for processSeed == 0 {
			processSeed = rand.Int63()
		}
		log.Info("Using random factory seed", logger.Fields(logger.FieldSeed, processSeed,
			"repeat_with", EnvSeed+"="+strconv.FormatInt(processSeed, 10)))
	})
	return processSeed
}

// nextSeed gives each factory that has no pinned seed its own stream:
// the n-th factory of a run is seeded with ProcessSeed()+n.
func nextSeed() int64 {
	return ProcessSeed() + factoryCount.Add(1)
}
