package main

import (
	"github.com/armon/go-metrics"
	mapsink "github.com/bakins/go-metrics-map"
	mmw "github.com/bakins/go-metrics-middleware"
	flag "github.com/ogier/pflag"
	log "github.com/sirupsen/logrus"

	"github.com/citrus-it/zadm"
	"github.com/citrus-it/zadm/pkg/runner"
)

type metricsContext struct {
	sink    *mapsink.MapSink
	metrics *metrics.Metrics
	mmw     *mmw.Middleware
}

func main() {
	var port uint
	var logLevel, statsd string

	flag.UintVarP(&port, "port", "p", 18100, "listen port")
	flag.StringVarP(&logLevel, "log-level", "l", "warn", "log level")
	flag.StringVarP(&statsd, "statsd", "s", "", "statsd address")
	flag.Parse()

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"level": logLevel,
		}).Fatal("unable to set up logging")
	}
	log.SetLevel(level)

	ctx := zadm.NewContext(runner.New(nil))

	// setup metrics
	sink := mapsink.New()
	fanout := metrics.FanoutSink{sink}

	if statsd != "" {
		ss, _ := metrics.NewStatsdSink(statsd)
		fanout = append(fanout, ss)
	}
	conf := metrics.DefaultConfig("zadmd")
	conf.EnableHostname = false
	m, _ := metrics.New(conf, fanout)

	mctx := &metricsContext{
		sink:    sink,
		metrics: m,
		mmw:     mmw.New(m),
	}

	server := Run(port, ctx, mctx)
	// Block until the server is stopped
	<-server.StopChan()
}
