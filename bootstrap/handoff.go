package bootstrap

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"filemanager/config"
)

// buildAppEnvironment returns the process environment for the collaborator
// application: the inherited environment with the validated and repaired
// values written back over whatever the platform injected. Admin credential
// variables pass through untouched; they are opaque to the sequencer.
func buildAppEnvironment(cfg *config.Config, endpoint *config.ConnectionEndpoint) []string {
	env := os.Environ()

	set := func(key, value string) {
		prefix := key + "="
		for i, kv := range env {
			if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
				env[i] = prefix + value
				return
			}
		}
		env = append(env, prefix+value)
	}

	set("PORT", strconv.Itoa(cfg.Server.Port))
	set("WEB_CONCURRENCY", strconv.Itoa(cfg.Server.Workers))
	set("UPLOAD_FOLDER", cfg.Storage.UploadDir)
	if endpoint != nil {
		set("DATABASE_URL", endpoint.String())
	}

	return env
}

// launchApp starts the collaborator application process with the validated
// environment. The launch happens even when the dependency readiness budget
// was exhausted; that failure surfaces on the first request the application
// serves.
func launchApp(cfg *config.Config, endpoint *config.ConnectionEndpoint, sugar *zap.SugaredLogger) (*exec.Cmd, chan error, error) {
	command := cfg.Server.AppCommand
	if len(command) == 0 {
		return nil, nil, nil
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = buildAppEnvironment(cfg, endpoint)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	sugar.Infow("Handing off to application process",
		"command", command,
		"port", cfg.Server.Port)

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start application process: %w", err)
	}

	exit := make(chan error, 1)
	go func() {
		exit <- cmd.Wait()
	}()

	return cmd, exit, nil
}
