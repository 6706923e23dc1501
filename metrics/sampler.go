package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 🌡️ 后台资源采样器
// =============================================================================

// Sampler 定期采样进程资源占用（堆内存、goroutine 数）。
// fire-and-forget：Start 后由内部 goroutine 驱动，Stop 时收束。
type Sampler struct {
	heapAlloc  prometheus.Gauge
	sysBytes   prometheus.Gauge
	goroutines prometheus.Gauge
	gcPauseNs  prometheus.Gauge

	interval time.Duration
	logger   *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewSampler 创建资源采样器并注册指标。interval <= 0 时采用 15s。
func NewSampler(namespace string, interval time.Duration, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Sampler{
		heapAlloc: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_alloc_bytes",
			Help:      "Bytes of allocated heap objects",
		}),
		sysBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sys_bytes",
			Help:      "Total bytes obtained from the OS",
		}),
		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of live goroutines",
		}),
		gcPauseNs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_last_pause_ns",
			Help:      "Duration of the most recent GC stop-the-world pause",
		}),
		interval: interval,
		logger:   logger.With(zap.String("component", "sampler")),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动后台采样。重复调用无效果。
func (s *Sampler) Start() {
	s.startOnce.Do(func() {
		s.started = true
		go s.loop()
	})
}

func (s *Sampler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample()
	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-s.stop:
			return
		}
	}
}

func (s *Sampler) sample() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.heapAlloc.Set(float64(m.HeapAlloc))
	s.sysBytes.Set(float64(m.Sys))
	s.goroutines.Set(float64(runtime.NumGoroutine()))
	if m.NumGC > 0 {
		s.gcPauseNs.Set(float64(m.PauseNs[(m.NumGC+255)%256]))
	}
}

// Stop 停止采样并等待后台 goroutine 退出。未 Start 时立即返回。
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if !s.started {
			return
		}
		select {
		case <-s.done:
		case <-time.After(time.Second):
			s.logger.Warn("sampler did not stop in time")
		}
	})
}
