package main

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/robotalks/genlink/pkg/link"
	"github.com/robotalks/genlink/pkg/link/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/genlink/"
)

func init() {
	if val := os.Getenv("GENLINK_LINK_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		f, err := link.DecodeFrame(payload)
		if err != nil {
			log.Printf("%s: bad frame: %v", topic, err)
			return
		}
		log.Printf("%s: port=%d seq=%d %s", topic, f.Port, f.Seq, strconv.Quote(string(f.Data)))
	}))
	<-(chan struct{})(nil)
}
