package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"tapvoice/audio"
	"tapvoice/beep"
	"tapvoice/config"
	"tapvoice/dictation"
	"tapvoice/doctor"
	"tapvoice/gate"
	"tapvoice/hotkey"
	"tapvoice/log"
	"tapvoice/notify"
	"tapvoice/paste"
	"tapvoice/shutdown"
	"tapvoice/transcriber"
	"tapvoice/tray"
)

const appName = "tapvoice"

func run(opts options) int {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Resolve log directory early
	logFlag := opts.logPath
	if logFlag == "" {
		logFlag = cfg.Log.Path
	}
	logPath, err := log.ResolveDir(logFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	} else if err := log.InitCrashLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open crash log: %v\n", err)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	if opts.listDevices {
		if err := listDevices(actx, cfg.Capture.Device, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	tr, err := transcriber.New(transcriber.Config{
		Provider: cfg.Transcriber.Provider,
		APIKey:   cfg.Transcriber.APIKey,
		Model:    cfg.Transcriber.Model,
		Language: cfg.Transcriber.Language,
		Timeout:  cfg.Transcriber.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	tr.Observe = func(r *transcriber.Result) {
		log.TranscriptionMetrics(metricsFor(r))
	}

	mics := audio.NewMicrophones(actx, audio.MicrophoneConfig{
		Device: cfg.Capture.Device,
		Segmenter: audio.SegmenterConfig{
			Threshold:   cfg.Capture.Threshold,
			SilenceEnd:  cfg.Capture.SilenceEnd,
			PhraseLimit: cfg.Capture.PhraseLimit,
		},
	})
	mics.Warn = log.Warn

	g := gate.New(gate.NewInspector(), cfg.Gate.Allowlist)
	detCfg := hotkey.DetectorConfig{
		Key:         cfg.Hotkey.Key,
		QuitKey:     cfg.Hotkey.QuitKey,
		DoublePress: cfg.Hotkey.DoublePress,
		Cooldown:    cfg.Hotkey.Cooldown,
	}

	if opts.doctor {
		return doctor.Run(ctx, doctor.Deps{
			Out:         os.Stdout,
			Hotkey:      detCfg,
			NewSource:   hotkey.New,
			Recognizer:  mics,
			Transcriber: tr,
			Gate:        g,
			InitPaste:   paste.Init,
			Countdown:   5 * time.Second,
		})
	}

	uiMode := cfg.UI.Mode
	if uiMode == config.UITUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Warning: stdout is not a terminal, using the tray instead of the TUI")
		uiMode = config.UITray
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.AppStart(version, uiMode, cfg.Hotkey.Key)

	go tr.Warm(ctx)
	go func() {
		if err := paste.Init(); err != nil {
			log.Errorf("paste init error: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}()

	inj := paste.New(paste.Config{
		RestoreClipboard: cfg.Inject.RestoreClipboard,
		RestoreDelay:     cfg.Inject.RestoreDelay,
	})
	defer inj.Flush()

	worker := dictation.NewWorker(mics, tr, g, inj, dictation.WorkerConfig{
		ListenTimeout: cfg.Capture.ListenTimeout,
		SilenceWarn:   cfg.Capture.SilenceWarn,
	})

	ctx, quit := context.WithCancel(ctx)
	defer quit()

	toggles := make(chan hotkey.ToggleRequest)
	requestToggle := func() {
		select {
		case toggles <- hotkey.ToggleRequest{At: time.Now()}:
		case <-ctx.Done():
		}
	}

	hint := hotkeyHint(cfg.Hotkey.Key, cfg.Hotkey.QuitKey)

	var sinks dictation.Sinks
	var trayQuit <-chan struct{}
	var tuiDone chan struct{}

	switch uiMode {
	case config.UITray:
		tray.SetHint(hint)
		tray.OnToggle(func() { go requestToggle() })
		trayQuit = tray.Init()
		defer tray.Stop()
		sinks = append(sinks, tray.Sink{})
		worker.OnSilence = func(d time.Duration) {
			tray.SetError(fmt.Sprintf("no voice detected for %v", d.Round(time.Second)))
		}

	case config.UITUI:
		p := NewTUIProgram(hint, modeLine(tr), quit)
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := p.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			quit()
		}()
		defer func() {
			p.Quit()
			<-tuiDone
		}()
		sinks = append(sinks, tuiSink{p: p})
		worker.OnEmit = func(text string) { p.Send(TranscriptMsg{Text: text}) }
		worker.OnSilence = func(d time.Duration) {
			p.Send(NoticeMsg{Title: appName, Text: fmt.Sprintf("no voice detected for %v", d.Round(time.Second))})
		}
	}

	if cfg.UI.Beep {
		go beep.Init()
		sinks = append(sinks, beep.Sink{})
	} else {
		beep.Disable()
	}

	if cfg.UI.Notify {
		n, err := notify.New()
		if err != nil {
			log.Warnf("notifications unavailable: %v", err)
		} else {
			defer n.Close()
			sinks = append(sinks, n)
			if err := n.Send(appName, hint); err != nil {
				log.Warnf("notify_error: %v", err)
			}
		}
	}

	controller := dictation.NewController(worker, sinks, dictation.ControllerConfig{
		StopTimeout: cfg.Controller.StopTimeout,
	})
	defer controller.Shutdown()
	go controller.Run(ctx, toggles)

	src, err := hotkey.New(cfg.Hotkey.Key, cfg.Hotkey.QuitKey)
	if err == nil {
		err = src.Register()
	}
	if err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Error registering hotkey: %v\n", err)
		return 1
	}
	defer src.Unregister()

	det := hotkey.NewDetector(detCfg)
	go det.Run(ctx, src.Events(), toggles, quit)

	if uiMode == config.UINone {
		fmt.Println(hint)
	}

	select {
	case <-ctx.Done():
	case <-trayQuit:
	}
	log.Info("quit")
	quit()
	controller.Shutdown()
	return 0
}

func hotkeyHint(key, quitKey string) string {
	hint := "double-tap " + strings.ToUpper(key) + " to dictate"
	if q := strings.TrimSpace(quitKey); q != "" {
		hint += ", " + strings.ToUpper(q) + " quits"
	}
	return hint
}

func modeLine(tr *transcriber.Whisper) string {
	s := tr.Name() + " " + tr.Model()
	if lang := tr.Language(); lang != "" {
		s += " (" + lang + ")"
	}
	return s
}

func metricsFor(r *transcriber.Result) log.Metrics {
	m := log.Metrics{
		Provider:   r.Provider,
		AudioS:     r.AudioSeconds,
		UploadKB:   float64(r.UploadBytes) / 1024,
		EncodeMs:   float64(r.EncodeTime.Microseconds()) / 1000,
		RateLimit:  r.RateLimit,
		NoSpeech:   r.NoSpeechProb,
		AvgLogProb: r.AvgLogProb,
	}
	if nm := r.Metrics; nm != nil {
		m.DNSMs = float64(nm.DNS.Microseconds()) / 1000
		m.TLSMs = float64(nm.TLS.Microseconds()) / 1000
		m.TTFBMs = float64(nm.TTFB.Microseconds()) / 1000
		m.TotalMs = float64(nm.Total.Microseconds()) / 1000
		m.ConnReused = nm.ConnReused
		m.TLSProto = nm.TLSProtocol
	}
	return m
}
