package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called from init() in each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every collector with the default registry exactly once.
func MustRegister() {
	once.Do(func() { MustRegisterWith(prometheus.DefaultRegisterer) })
}

// MustRegisterWith registers every collector with reg. Tests use a fresh registry.
func MustRegisterWith(reg prometheus.Registerer) {
	if len(collectors) > 0 {
		reg.MustRegister(collectors...)
	}
}
