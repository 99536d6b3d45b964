// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     cmd
// Description: Wires configuration into the interpreter components
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/audio"
	"github.com/msto63/dolmetscher/internal/interpreter/prefs"
	"github.com/msto63/dolmetscher/internal/interpreter/sink"
	"github.com/msto63/dolmetscher/internal/interpreter/stt"
	"github.com/msto63/dolmetscher/internal/interpreter/translate"
	"github.com/msto63/dolmetscher/internal/interpreter/tts"
	"github.com/msto63/dolmetscher/internal/interpreter/vad"
	"github.com/msto63/dolmetscher/internal/server"
	"github.com/msto63/dolmetscher/pkg/core/config"
	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
	"github.com/msto63/dolmetscher/pkg/core/version"
)

// app holds the wired components of one process
type app struct {
	cfg        *config.Config
	controller *interpreter.Controller
	translator *translate.Service
	speaker    *tts.Speaker
	prefs      *prefs.Store
	server     *server.Server
	mqtt       *sink.MQTT
	logger     *logging.Logger
}

// deviceFlags are device selections given on the command line
type deviceFlags struct {
	input  string
	output string
}

func captureConfig(cfg *config.Config) audio.CaptureConfig {
	c := audio.DefaultCaptureConfig()
	c.SampleRate = cfg.Audio.SampleRate
	c.FrameSize = cfg.Audio.FrameSize
	c.QueueFrames = cfg.Audio.QueueFrames
	return c
}

func sttConfig(cfg *config.Config) stt.Config {
	r := cfg.Recognition
	return stt.Config{
		Engine:        r.Engine,
		WhisperBinary: r.WhisperBinary,
		ServerURL:     r.ServerURL,
		Language:      cfg.Translation.Source,
		SampleRate:    cfg.Audio.SampleRate,
		Threads:       r.Threads,
		Timeout:       r.Timeout.Duration,
		VAD: vad.Config{
			SampleRate:   cfg.Audio.SampleRate,
			Mode:         r.VADMode,
			Ratio:        r.VADRatio,
			Silence:      r.Silence.Duration,
			MinSpeech:    r.MinSpeech.Duration,
			MaxUtterance: r.MaxUtterance.Duration,
		},
		PreRoll:         r.PreRoll.Duration,
		PartialInterval: r.PartialInterval.Duration,
	}
}

func ttsConfig(cfg *config.Config) tts.Config {
	s := cfg.Speech
	return tts.Config{
		Engine:      s.Engine,
		PiperBinary: s.PiperBinary,
		PiperModel:  s.PiperModel,
		EspeakData:  s.EspeakData,
		Voice:       s.Voice,
		Rate:        s.Rate,
		SampleRate:  s.SampleRate,
		QueueSize:   s.QueueSize,
	}
}

func translateConfig(cfg *config.Config) translate.Config {
	return translate.Config{
		Timeout:   cfg.Translation.Timeout.Duration,
		CacheTTL:  cfg.Translation.CacheTTL.Duration,
		CacheSize: cfg.Translation.CacheSize,
	}
}

func newBackend(cfg *config.Config) (translate.Backend, error) {
	switch cfg.Translation.Backend {
	case "ollama":
		oc := translate.DefaultOllamaConfig()
		oc.BaseURL = cfg.Translation.Ollama.URL
		oc.Model = cfg.Translation.Ollama.Model
		return translate.NewOllama(oc), nil
	case "gemini":
		return translate.NewGemini(translate.GeminiConfig{
			APIKey: cfg.Translation.Gemini.APIKey,
			Model:  cfg.Translation.Gemini.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown translation backend: %s", cfg.Translation.Backend)
	}
}

func mqttConfig(cfg *config.Config) sink.MQTTConfig {
	m := cfg.MQTT
	return sink.MQTTConfig{
		BrokerURL: m.Broker,
		Topic:     m.Topic,
		ClientID:  m.ClientID,
		Username:  m.Username,
		Password:  m.Password,
		QoS:       byte(m.QoS),
	}
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		HTTPAddr:     cfg.Server.HTTPAddr,
		GRPCAddr:     cfg.Server.GRPCAddr,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}
}

// selectDevices picks the device handles for a session: command line first,
// then the stored selection, then the config file, then the default route
func selectDevices(flags deviceFlags, stored prefs.Devices, cfg *config.Config) (input, output interpreter.DeviceHandle) {
	pick := func(values ...string) interpreter.DeviceHandle {
		for _, v := range values {
			if v != "" {
				return interpreter.DeviceHandle(v)
			}
		}
		return interpreter.DefaultDevice
	}
	input = pick(flags.input, string(stored.Input), cfg.Audio.InputDevice)
	output = pick(flags.output, string(stored.Output), cfg.Audio.OutputDevice)
	return input, output
}

// resolveDevices replaces handles of devices that are gone with the default
// route. When devices cannot be listed the handles are kept as they are.
func resolveDevices(input, output interpreter.DeviceHandle, logger *logging.Logger) (interpreter.DeviceHandle, interpreter.DeviceHandle) {
	devices, err := audio.ListDevices()
	if err != nil {
		logger.Warn("Cannot list audio devices", "error", err)
		return input, output
	}

	in := audio.Resolve(audio.Inputs(devices), input)
	out := audio.Resolve(audio.Outputs(devices), output)
	if in != input {
		logger.Warn("Stored input device not found, using default", "device", input)
	}
	if out != output {
		logger.Warn("Stored output device not found, using default", "device", output)
	}
	return in, out
}

// newApp wires all components from the loaded configuration
func newApp(cfg *config.Config, devices deviceFlags) (*app, error) {
	logger := logging.New("dolmetscher")

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := tts.NewEngine(ttsConfig(cfg), audio.NewPlayer())
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		translator: translate.NewService(backend, translateConfig(cfg)),
		speaker:    tts.NewSpeaker(engine, cfg.Speech.QueueSize),
		logger:     logger,
	}

	a.translator.OnProgress(func(p translate.Progress) {
		logger.Info("Provisioning translation model", "pair", p.Pair, "status", p.Status, "percent", fmt.Sprintf("%.0f", p.Percent()))
	})
	a.speaker.OnPlaybackError(a.playbackFailed)

	var stored prefs.Devices
	if store, err := prefs.Open(prefs.Config{Path: cfg.Prefs.Path}); err != nil {
		logger.Warn("Device preferences unavailable", "path", cfg.Prefs.Path, "error", err)
	} else {
		a.prefs = store
		if stored, err = store.Devices(context.Background()); err != nil {
			logger.Warn("Cannot read device preferences", "error", err)
		}
	}

	input, output := selectDevices(devices, stored, cfg)
	input, output = resolveDevices(input, output, logger)

	deps := interpreter.Deps{
		Audio:      audio.NewSource(captureConfig(cfg)),
		Recognizer: stt.NewRecognizer(sttConfig(cfg)),
		Translator: a.translator,
		Speech:     a.speaker,
	}
	a.controller = interpreter.NewController(interpreter.ConfigFrom(cfg), deps)
	a.controller.SetDevices(input, output)

	logger.Info("Interpreter ready",
		"pair", translate.Pair(cfg.Translation.Source, cfg.Translation.Target),
		"backend", backend.Name(),
		"speech", engine.Name(),
		"input", input,
		"output", output)
	return a, nil
}

// rememberDevices stores the devices the session ran with
// playbackFailed reports asynchronous playback errors on the running
// session's event stream
func (a *app) playbackFailed(err error) {
	if a.controller == nil {
		a.logger.Warn("Playback failed", "error", err)
		return
	}
	a.controller.Warn(err)
}

func (a *app) rememberDevices() {
	if a.prefs == nil {
		return
	}
	input, output := a.controller.Devices()
	if err := a.prefs.SaveDevices(context.Background(), input, output); err != nil {
		a.logger.Warn("Cannot store device preferences", "error", err)
	}
}

// startServer starts the status server when an address is configured
func (a *app) startServer() error {
	sc := serverConfig(a.cfg)
	if sc.HTTPAddr == "" && sc.GRPCAddr == "" {
		return nil
	}

	a.server = server.New(sc, a.controller, newRegistry(a.cfg))
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("failed to start status server: %w", err)
	}
	a.controller.AddSink(a.server)
	return nil
}

// startMQTT connects the MQTT sink when a broker is configured
func (a *app) startMQTT() error {
	if a.cfg.MQTT.Broker == "" {
		return nil
	}

	a.mqtt = sink.NewMQTT(mqttConfig(a.cfg))
	if err := a.mqtt.Connect(); err != nil {
		return err
	}
	a.controller.AddSink(a.mqtt)
	return nil
}

// close stops the interpreter and releases every component. Waiting for
// the last instance is bounded by twice the stop grace period.
func (a *app) close() {
	done := make(chan error, 1)
	go func() { done <- a.controller.Close() }()

	wait := 2 * a.cfg.Pipeline.StopGrace.Duration
	select {
	case err := <-done:
		if err != nil {
			a.logger.Warn("Stop incomplete", "error", err)
		}
	case <-time.After(wait):
		a.logger.Warn("Interpreter did not stop in time", "wait", wait)
	}

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("Server shutdown failed", "error", err)
		}
		cancel()
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}

	a.speaker.Close()
	a.translator.Close()
	if a.prefs != nil {
		a.prefs.Close()
	}
}

// newRegistry registers the checks shared by doctor and /healthz
func newRegistry(cfg *config.Config) *health.Registry {
	registry := health.NewRegistry("dolmetscher", version.App)
	registry.Register(health.PathCheck("recognition model", cfg.Recognition.ModelPath))

	switch cfg.Recognition.Engine {
	case stt.EngineWhisperHTTP:
		registry.Register(health.HTTPCheck("whisper server", cfg.Recognition.ServerURL, 3*time.Second))
	default:
		if cfg.Recognition.WhisperBinary != "" {
			registry.Register(health.PathCheck("whisper binary", cfg.Recognition.WhisperBinary))
		} else {
			registry.Register(health.BinaryCheck("whisper binary", "whisper-cli", "whisper-cpp", "whisper", "main"))
		}
	}

	switch cfg.Translation.Backend {
	case "ollama":
		registry.Register(health.HTTPCheck("ollama", cfg.Translation.Ollama.URL+"/api/tags", 3*time.Second))
	case "gemini":
		registry.RegisterFunc("gemini key", func(ctx context.Context) health.CheckResult {
			return geminiKeyCheck(cfg.Translation.Gemini.APIKey)
		})
	}

	switch cfg.Speech.Engine {
	case tts.EngineSay:
		registry.Register(health.BinaryCheck("speech", "say"))
	default:
		if cfg.Speech.PiperModel != "" {
			registry.Register(health.PathCheck("piper voice", cfg.Speech.PiperModel))
		}
		if cfg.Speech.PiperBinary != "" {
			registry.Register(health.PathCheck("piper binary", cfg.Speech.PiperBinary))
		} else {
			registry.Register(health.BinaryCheck("piper binary", "piper"))
		}
	}

	return registry
}

func geminiKeyCheck(key string) health.CheckResult {
	result := health.CheckResult{Name: "gemini key", Status: health.StatusHealthy, Message: "configured"}
	if key == "" || strings.HasPrefix(key, "${") {
		result.Status = health.StatusUnhealthy
		result.Message = "GEMINI_API_KEY not set"
	}
	return result
}
