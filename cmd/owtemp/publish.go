// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"periph.io/x/conn/v3/physic"
)

// reading is one measurement.
type reading struct {
	Serial    string
	Temp      physic.Temperature
	Timestamp time.Time
}

// MarshalJSON implements json.Marshaler.
func (r reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Serial    string    `json:"serial"`
		TempC     float64   `json:"temp_c"`
		Timestamp time.Time `json:"timestamp"`
	}{r.Serial, r.Temp.Celsius(), r.Timestamp})
}

// publishTimeout bounds the wait for the broker to acknowledge a message.
const publishTimeout = 10 * time.Second

// publisher sends readings to an MQTT topic.
type publisher struct {
	client mqtt.Client
	topic  string
}

func (p *publisher) publish(r reading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 1, false, b)
	if ok := token.WaitTimeout(publishTimeout); !ok {
		return fmt.Errorf("publish timed out after %v", publishTimeout)
	} else if token.Error() != nil {
		return fmt.Errorf("failed to publish: %w", token.Error())
	}
	return nil
}

// mqttConnect connects to broker.
func mqttConnect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			log.Printf("Connection to MQTT broker lost: %v", err)
		})
	client := mqtt.NewClient(opts)
	waitDur := 10 * time.Second
	if token := client.Connect(); !token.WaitTimeout(waitDur) {
		return nil, fmt.Errorf("MQTT connection attempt timed out after %v", waitDur)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, token.Error())
	}
	return client, nil
}
