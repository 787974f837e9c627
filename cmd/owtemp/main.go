// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// owtemp reads a DS18S20 temperature sensor wired to a serial port and prints
// the readings, optionally publishing them over MQTT.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/uart1wire/ds18s20"
	"github.com/GermanBionicSystems/uart1wire/owuart"
	"github.com/mattn/go-colorable"
	cron "github.com/robfig/cron/v3"
	"go.bug.st/serial"
	"periph.io/x/host/v3"
)

// Flags.
var (
	portName  = flag.String("port", "", "serial port wired to the 1-wire bus; defaults to the first port found")
	timeout   = flag.Duration("timeout", owuart.DefaultSerialOpts.ReadTimeout, "time to wait for each echo on the serial port")
	cronSpec  = flag.String("cronspec", "", "cron spec that specifies when to take measurements; empty to take one and exit")
	broker    = flag.String("mqtt-broker", "", "MQTT broker to publish measurements to, e.g. tcp://localhost:1883")
	topic     = flag.String("mqtt-topic", "owtemp/temperature", "MQTT topic to publish measurements to")
	clientID  = flag.String("mqtt-client-id", "owtemp", "MQTT client ID")
	colorMode = flag.String("color", "auto", "colorize the output: auto, always or never")
)

// job takes a measurement, prints it and publishes it.
type job struct {
	dev    *ds18s20.Dev
	serial ds18s20.SerialNumber
	out    *printer
	pub    *publisher // nil when not publishing
	now    func() time.Time
}

func (j *job) run() error {
	t, err := j.dev.BlockingRead()
	if err != nil {
		return fmt.Errorf("failed to take measurement: %w", err)
	}
	r := reading{Serial: j.serial.String(), Temp: t, Timestamp: j.now().UTC()}
	if err := j.out.print(r); err != nil {
		return err
	}
	if j.pub != nil {
		if err := j.pub.publish(r); err != nil {
			return fmt.Errorf("failed to publish measurement: %w", err)
		}
	}
	return nil
}

// defaultPort returns the first serial port of the host.
func defaultPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial port found, use -port")
	}
	return ports[0], nil
}

func mainImpl() error {
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %v", flag.Args())
	}
	colored, err := useColor(*colorMode, os.Stdout.Fd())
	if err != nil {
		return err
	}

	// Initialize periph.
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	name := *portName
	if name == "" {
		if name, err = defaultPort(); err != nil {
			return err
		}
	}
	s, err := owuart.OpenSerial(name, &owuart.SerialOpts{ReadTimeout: *timeout})
	if err != nil {
		return err
	}
	bus, err := owuart.New(s, nil)
	if err != nil {
		_ = s.Close()
		return err
	}
	defer bus.Close()

	dev, err := ds18s20.New(bus, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize DS18S20 on %s: %w", name, err)
	}
	sn, err := dev.SerialNumber()
	if err != nil {
		return fmt.Errorf("failed to read serial number: %w", err)
	}
	parasitic, err := dev.PowerSupply()
	if err != nil {
		return fmt.Errorf("failed to read power supply: %w", err)
	}
	log.Printf("Found %s %s on %s (parasite powered: %t)", sn.Family(), sn, name, parasitic)

	j := &job{
		dev:    dev,
		serial: sn,
		out:    newPrinter(colorable.NewColorableStdout(), colored),
		now:    time.Now,
	}
	if *broker != "" {
		client, err := mqttConnect(*broker, *clientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		j.pub = &publisher{client: client, topic: *topic}
	}

	if *cronSpec == "" {
		return j.run()
	}

	// Schedule the measurement routine.
	cr := cron.New()
	log.Printf("Starting cron scheduler with spec %q", *cronSpec)
	if _, err := cr.AddFunc(*cronSpec, func() {
		if err := j.run(); err != nil {
			log.Print(err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", *cronSpec, err)
	}
	cr.Start()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Println("Cleaning up...")
	<-cr.Stop().Done()
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("owtemp: %v", err)
	}
}
