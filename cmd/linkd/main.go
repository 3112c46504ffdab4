package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/genlink/pkg/env"
	fx "github.com/robotalks/genlink/pkg/framework"
	"github.com/robotalks/genlink/pkg/link"
)

var maxFrame = link.DefaultMaxFrame

func init() {
	env.SetupFlags()
	flag.IntVar(&maxFrame, "max-frame", maxFrame, "Maximum payload of a frame.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	m := conf.MustNewMachine()
	defer m.Close()

	runner := fx.NewRunner().HandleSignals()
	if err := m.Start(runner.Context); err != nil {
		log.Fatalln(err)
	}
	conn, err := conf.DialLink()
	if err != nil {
		log.Fatalln(err)
	}

	bridge := link.NewBridge(m.Serial, conn.Conn)
	bridge.MaxFrame = maxFrame
	loop := fx.NewLoop()
	loop.Interval = conf.Interval
	loop.Add(m, bridge)
	glog.Infof("bridging %s as %s over %s", m.Serial.Port(), conf.DeviceID, conn.URL)

	runner.Go(fx.NamedRun("loop", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, conn, func() error {
			return loop.Run(ctx)
		})
	})))
	err = runner.Wait()
	glog.Infof("stopped: %+v", bridge.Stats())
	if err != nil {
		log.Fatalln(err)
	}
}
