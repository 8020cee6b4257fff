package stats

import (
	"bufio"
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a request.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// ExplorerRequests counts the requests made to the block explorer by
	// endpoint and outcome.
	ExplorerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hwkmd",
			Subsystem: "explorer",
			Name:      "requests_total",
			Help:      "Number of requests made to the block explorer.",
		},
		[]string{"endpoint", "outcome"},
	)
	// DeviceRequests counts the requests made to hardware wallets by vendor,
	// operation and outcome.
	DeviceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hwkmd",
			Subsystem: "device",
			Name:      "requests_total",
			Help:      "Number of requests made to hardware wallets.",
		},
		[]string{"vendor", "operation", "outcome"},
	)
	// DiscoveredUtxos counts the utxos found by account discovery.
	DiscoveredUtxos = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hwkmd",
			Subsystem: "discovery",
			Name:      "utxos_total",
			Help:      "Number of utxos found by account discovery.",
		},
	)
)

func init() {
	prometheus.MustRegister(ExplorerRequests, DeviceRequests, DiscoveredUtxos)
}

// Outcome returns the outcome label for the given error.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// DumpPrometheusDefaults write default Prometheus metrics to the given file
func DumpPrometheusDefaults(path string) error {
	file, err := os.OpenFile(
		path,
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0644,
	)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	metricFamily, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, v := range metricFamily {
		_, err := writer.WriteString(v.String() + "\n")
		if err != nil {
			return err
		}
	}

	return writer.Flush()
}
