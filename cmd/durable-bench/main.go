package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tchajed/durable/alloc"
	"github.com/tchajed/durable/coll"
	"github.com/tchajed/durable/config"
	"github.com/tchajed/durable/durable"
	"github.com/tchajed/durable/fs"
	"github.com/tchajed/durable/leveldb"
	"github.com/tchajed/durable/logging"
)

var configPath = flag.String("config", "", "YAML configuration `file` (defaults if empty)")
var benchmarks = flag.String("benchmarks", "build,persist,open,iterate,nth,diff,diff-persist,passthrough,compact", "comma-separated list of benchmarks to run")
var storeType = flag.String("store", "", "override the configured store (mem|dir|leveldb)")
var storePath = flag.String("path", "benchmark.blocks", "directory for dir and leveldb stores")
var numEntries = flag.Int("entries", 1000000, "number of entries to put in the map")
var numReads = flag.Int("reads", -1, "number of nth lookups to perform (-1 to copy entries)")
var valueSize = flag.Int("value-size", 100, "bytes per value")
var removeEvery = flag.Int("remove-every", 10, "diff removes one in this many entries")
var deleteStore = flag.Bool("delete-store", false, "delete store directory on completion")
var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory cpu profile to `file`")
var printStats = flag.Bool("stats", false, "print out filesystem and allocator stats")
var metricsAddr = flag.String("metrics-addr", "", "serve allocator metrics on this address")

var enc = coll.Uint64Bytes{}

// compacter is a target that can reorganize its storage, such as LevelDB.
type compacter interface {
	Compact()
}

type store struct {
	target durable.Target
	fs     fs.Filesys
	close  func()
}

func initStore(cfg config.Config, pool *alloc.Pool, log logging.Logger) (store, error) {
	switch cfg.Store.Kind {
	case config.StoreMem:
		filesys := fs.MemFs()
		return store{durable.NewFileTarget(filesys, pool, cfg.BufferOptions(), log), filesys, func() {}}, nil
	case config.StoreDir:
		filesys, err := fs.DirFs(cfg.Store.Path)
		if err != nil {
			return store{}, err
		}
		if err := fs.DeleteAll(filesys); err != nil {
			return store{}, err
		}
		return store{durable.NewFileTarget(filesys, pool, cfg.BufferOptions(), log), filesys, func() {}}, nil
	case config.StoreLevelDB:
		_ = os.RemoveAll(cfg.Store.Path)
		t, err := leveldb.New(cfg.Store.Path, pool, cfg.BufferOptions(), log)
		if err != nil {
			return store{}, err
		}
		return store{t, nil, t.Close}, nil
	}
	return store{}, errors.Errorf("unknown store %s", cfg.Store.Kind)
}

func showNum(i int) string {
	if i > 2000 {
		if i%1000 == 0 {
			return fmt.Sprintf("%dK", i/1000)
		}
		return fmt.Sprintf("%.1fK", float64(i)/1000)
	}
	return fmt.Sprintf("%d", i)
}

func writeMemProfile(fname string, log logging.Logger) {
	f, err := os.Create(fname)
	if err != nil {
		log.Error("could not create memory profile", "err", err)
		return
	}
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error("could not write memory profile", "err", err)
	}
	f.Close()
}

// runState carries the maps built by one benchmark to the next.
type runState struct {
	target durable.Target
	built  *coll.LinearMap[uint64, []byte]
	handle durable.Handle
	stored *coll.DurableMap[uint64, []byte]
	diff   *coll.DiffMap[uint64, []byte]
}

// current is the most recently opened map, or the built one.
func (r *runState) current() (coll.OrderedMap[uint64, []byte], error) {
	if r.stored != nil {
		return r.stored, nil
	}
	if r.built != nil {
		return r.built, nil
	}
	return nil, errors.New("no map yet: run build first")
}

func runBenchmark(name string, r *runState, s BenchState) error {
	switch name {
	case "build":
		r.built = coll.NewLinearMap[uint64, []byte](coll.Uint64Hash, coll.Equal[uint64])
		r.stored, r.diff = nil, nil
		for i := 0; i < *numEntries; i++ {
			k, v := s.NextKey(), s.Value(*valueSize)
			r.built.Put(k, v)
			s.FinishedSingleOp(8 + len(v))
		}
	case "persist":
		m, err := r.current()
		if err != nil {
			return err
		}
		h, err := m.Persist(enc, r.target)
		if err != nil {
			return err
		}
		r.handle = h
		s.FinishedSingleOp(int(h.Size))
	case "open":
		if r.handle.Name == "" {
			return errors.New("nothing persisted: run persist first")
		}
		m, err := coll.Open[uint64, []byte](r.target, r.handle, enc)
		if err != nil {
			return err
		}
		r.stored = m
		s.FinishedSingleOp(int(r.handle.Size))
	case "iterate":
		m, err := r.current()
		if err != nil {
			return err
		}
		for it := m.Iterator(); it.HasNext(); {
			e := it.Next()
			s.FinishedSingleOp(8 + len(e.Value))
		}
	case "nth":
		m, err := r.current()
		if err != nil {
			return err
		}
		if m.Size() == 0 {
			return nil
		}
		for i := 0; i < *numReads; i++ {
			e, err := m.Nth(s.RandomIndex(m.Size()))
			if err != nil {
				return err
			}
			s.FinishedSingleOp(8 + len(e.Value))
		}
	case "diff":
		m, err := r.current()
		if err != nil {
			return err
		}
		if *removeEvery <= 0 {
			return errors.Errorf("-remove-every must be positive, got %d", *removeEvery)
		}
		added := coll.NewLinearMap[uint64, []byte](coll.Uint64Hash, coll.Equal[uint64])
		var removed []int64
		for i := int64(0); i < m.Size(); i += int64(*removeEvery) {
			removed = append(removed, i)
			e, err := m.Nth(i)
			if err != nil {
				return err
			}
			// shadow half of the removed entries with new values
			if i%int64(2*(*removeEvery)) == 0 {
				added.Put(e.Key, s.Value(*valueSize))
			}
			s.FinishedSingleOp(0)
		}
		r.diff = coll.NewDiffMap[uint64, []byte](m, added, coll.NewRemovedSet(removed...))
	case "diff-persist":
		if r.diff == nil {
			return errors.New("no diff: run diff first")
		}
		h, err := r.diff.Persist(enc, r.target)
		if err != nil {
			return err
		}
		s.FinishedSingleOp(int(h.Size))
	case "passthrough":
		m, err := r.current()
		if err != nil {
			return err
		}
		empty := coll.NewLinearMap[uint64, []byte](coll.Uint64Hash, coll.Equal[uint64])
		h, err := coll.NewDiffMap[uint64, []byte](m, empty, coll.NewRemovedSet()).Persist(enc, r.target)
		if err != nil {
			return err
		}
		s.FinishedSingleOp(int(h.Size))
	case "compact":
		// targets without compaction record the no-op
		if c, ok := r.target.(compacter); ok {
			c.Compact()
		}
		s.FinishedSingleOp(0)
	default:
		return errors.Errorf("unknown benchmark %s", name)
	}
	return nil
}

func runBenchmarks(target durable.Target, log logging.Logger) (time.Time, error) {
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "could not create CPU profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return time.Time{}, errors.Wrap(err, "could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}
	if *memprofile != "" {
		defer writeMemProfile(*memprofile, log)
	}

	r := &runState{target: target}
	for _, name := range strings.Split(*benchmarks, ",") {
		s := NewBench(name)
		if err := runBenchmark(name, r, s); err != nil {
			return time.Time{}, errors.Wrap(err, name)
		}
		s.Report()
	}
	return time.Now(), nil
}

func loadConfig() (config.Config, error) {
	cfg := config.Defaults()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadYAML(*configPath, "DURABLE")
		if err != nil {
			return cfg, err
		}
	}
	if *storeType != "" {
		cfg.Store.Kind = *storeType
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = *storePath
	}
	return cfg, cfg.Validate()
}

func serveMetrics(pool *alloc.Pool, log logging.Logger) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(pool.Collectors()...)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()
}

func main() {
	flag.Parse()

	if len(flag.Args()) > 0 {
		fmt.Fprintln(os.Stderr, "extra command line arguments", flag.Args())
		flag.Usage()
		os.Exit(1)
	}

	if *numReads == -1 {
		*numReads = *numEntries
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.NewDefaultLogger(cfg.LogLevel())

	totalBytes := float64(*numEntries * (8 + *valueSize))
	for _, info := range []struct {
		Key   string
		Value string
	}{
		{"store", cfg.Store.Kind},
		{"entries", showNum(*numEntries)},
		{"min buffer (KB)", fmt.Sprintf("%d", cfg.Buffer.MinBufferSize/1024)},
		{"total data (MB)", fmt.Sprintf("%.1f", totalBytes/(1024*1024))},
	} {
		fmt.Printf("%20s %s\n", info.Key+":", info.Value)
	}
	fmt.Println(strings.Repeat("-", 30))

	pool := cfg.NewPool()
	if *metricsAddr != "" {
		serveMetrics(pool, log)
	}
	st, err := initStore(cfg, pool, log)
	if err != nil {
		log.Error("could not open store", "err", err)
		os.Exit(1)
	}
	start := time.Now()
	end, err := runBenchmarks(st.target, log)
	st.close()
	if err != nil {
		log.Error("benchmark failed", "err", err)
		os.Exit(1)
	}

	if *printStats {
		if st.fs != nil {
			fsstats := st.fs.GetStats()
			writes := stats{fsstats.WriteOps, fsstats.WriteBytes, start, &end}
			reads := stats{fsstats.ReadOps, fsstats.ReadBytes, start, &end}
			fmt.Printf("%-20s : %s [%6d kops]\n", "[meta] fs-writes", writes.formatStats(), writes.Ops/1000)
			fmt.Printf("%-20s : %s [%6d kops]\n", "[meta] fs-reads", reads.formatStats(), reads.Ops/1000)
		}
		fmt.Printf("%-20s : %d buffers, %d bytes\n", "[meta] alloc-live", pool.Live(), pool.LiveBytes())
	}

	if *deleteStore && cfg.Store.Kind != config.StoreMem {
		os.RemoveAll(cfg.Store.Path)
	}
}
