// Package install runs the one-shot provisioning container that
// materializes a workload's files before its first start.
package install

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/types"
)

// tailLines is the number of trailing log lines reported to the Panel on
// failure.
const tailLines = 50

// Request bundles the inputs for a single install run.
type Request struct {
	Spec         types.WorkloadSpec
	Script       string
	InstallImage string
	PanelURL     string
	PanelAuth    string
}

// Run creates and starts the install container, waits for exit, reads
// its captured combined output, and notifies the Panel of the
// outcome via a best-effort HTTP callback. The returned error carries
// the exit code when the script fails; callers treat a non-nil error
// as install failure regardless of the lines already returned.
func Run(ctx context.Context, adapter runtime.Adapter, httpClient *http.Client, req Request) ([]string, error) {
	name := types.InstallContainerName(req.Spec.UUID)

	// Clean up any leftover container from a previous, interrupted run.
	_ = adapter.Remove(ctx, name)

	spec := runtime.ContainerSpec{
		ID:      name,
		Image:   req.InstallImage,
		Args:    []string{"/bin/sh", "-c", req.Script},
		WorkDir: "/server",
		Labels:  map[string]string{types.ServerUUIDLabel: req.Spec.UUID},
		Mounts: []runtime.Mount{
			{Source: req.Spec.VolumePath, Destination: "/server"},
		},
	}

	if err := adapter.CreateContainer(ctx, spec); err != nil {
		return nil, apierr.Runtime("create install container", err)
	}
	if err := adapter.Start(ctx, name); err != nil {
		_ = adapter.Remove(ctx, name)
		return nil, apierr.Runtime("start install container", err)
	}

	exitCode, err := adapter.WaitExit(ctx, name)
	if err != nil {
		_ = adapter.Remove(ctx, name)
		return nil, apierr.Runtime("wait for install container", err)
	}

	lines, err := adapter.LogsTail(ctx, name, 1<<20)
	if err != nil {
		log.Logger.Warn().Str("uuid", req.Spec.UUID).Err(err).Msg("failed to read install logs")
	}

	if exitCode != 0 {
		notify(httpClient, req, false, tail(lines, tailLines))
		_ = adapter.Remove(ctx, name)
		return lines, fmt.Errorf("install script exited with code %d", exitCode)
	}

	notify(httpClient, req, true, "")
	_ = adapter.Remove(ctx, name)
	return lines, nil
}

func tail(lines []string, n int) string {
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func notify(httpClient *http.Client, req Request, success bool, message string) {
	if req.PanelURL == "" || req.PanelAuth == "" {
		return
	}
	body := map[string]string{"status": "failed"}
	if success {
		body = map[string]string{"status": "success"}
	} else {
		body["message"] = message
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	url := strings.TrimRight(req.PanelURL, "/") + "/api/v1/servers/" + req.Spec.UUID + "/install-status"
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.PanelAuth)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		log.Logger.Warn().Str("uuid", req.Spec.UUID).Err(err).Msg("failed to notify Panel of install status")
		return
	}
	resp.Body.Close()
}
