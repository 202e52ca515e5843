package cliconfig

import "os"

// EnvPrefix starts the name of every environment variable read by
// ApplyEnvConfig.
const EnvPrefix = "DCF77RX_"

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (DCF77RX_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", env("SOURCE"), &cfg.Source)
	s.setString("port", env("PORT"), &cfg.Port)
	s.setString("line", env("LINE"), &cfg.Line)
	s.setString("capture", env("CAPTURE"), &cfg.Capture)
	s.setString("record-dir", env("RECORD_DIR"), &cfg.RecordDir)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", env("MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("webhook-url", env("WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("webhook-token", env("WEBHOOK_TOKEN"), &cfg.WebhookToken)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)

	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("publish-timeout", env("PUBLISH_TIMEOUT"), &cfg.PublishTimeout); err != nil {
		return err
	}
	if err := s.setTime("sim-start", env("SIM_START"), &cfg.SimStart); err != nil {
		return err
	}

	if err := s.setFloatFromString("sim-noise", env("SIM_NOISE"), &cfg.SimNoise); err != nil {
		return err
	}
	if err := s.setFloatFromString("sim-dropout", env("SIM_DROPOUT"), &cfg.SimDropout); err != nil {
		return err
	}

	if err := s.setIntFromString("baud", env("BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("sim-minutes", env("SIM_MINUTES"), &cfg.SimMinutes); err != nil {
		return err
	}
	if err := s.setIntFromString("mqtt-qos", env("MQTT_QOS"), &cfg.MQTTQoS); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", env("QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", env("PUBLISH_RETRIES"), &cfg.PublishRetries); err != nil {
		return err
	}

	s.setBoolFromString("invert", env("INVERT"), &cfg.Invert)
	s.setBoolFromString("power-dtr", env("POWER_DTR"), &cfg.PowerDTR)
	s.setBoolFromString("power-rts", env("POWER_RTS"), &cfg.PowerRTS)
	s.setBoolFromString("follow", env("FOLLOW"), &cfg.Follow)
	s.setBoolFromString("sim-realtime", env("SIM_REALTIME"), &cfg.SimRealtime)
	s.setBoolFromString("log-frames", env("LOG_FRAMES"), &cfg.LogFrames)
	s.setBoolFromString("mqtt-retain", env("MQTT_RETAIN"), &cfg.MQTTRetain)

	return nil
}
