// Package network publishes a workload's port mappings against a
// containerd backend. Unlike the Docker Engine API, containerd performs
// no host-port NAT of its own, so rules are installed via iptables and
// torn down symmetrically.
package network

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/types"
)

// PortPublisher installs and tears down iptables DNAT/MASQUERADE/FORWARD
// rules mapping host ports onto a container's network-namespace IP. All
// port mappings are TCP-only host-mode publishing; there is no other
// publish mode in this daemon.
type PortPublisher struct {
	mu        sync.Mutex
	published map[string][]types.PortMapping // uuid -> ports
}

// NewPortPublisher creates an empty PortPublisher.
func NewPortPublisher() *PortPublisher {
	return &PortPublisher{published: make(map[string][]types.PortMapping)}
}

// Publish installs forwarding rules for every mapping in ports, pointed
// at containerIP. On partial failure, any rules already installed for
// this call are torn down before the error is returned.
func (p *PortPublisher) Publish(uuid, containerIP string, ports []types.PortMapping) error {
	if len(ports) == 0 {
		return nil
	}

	for i, pm := range ports {
		if err := p.addRules(containerIP, pm); err != nil {
			for _, done := range ports[:i] {
				p.removeRules(containerIP, done)
			}
			return fmt.Errorf("publish port %d:%d: %w", pm.HostPort, pm.ContainerPort, err)
		}
	}

	p.mu.Lock()
	p.published[uuid] = ports
	p.mu.Unlock()
	return nil
}

// Unpublish removes every rule installed for uuid. Failures are logged,
// not returned: cleanup is best-effort.
func (p *PortPublisher) Unpublish(uuid, containerIP string) {
	p.mu.Lock()
	ports, ok := p.published[uuid]
	delete(p.published, uuid)
	p.mu.Unlock()

	if !ok {
		return
	}
	for _, pm := range ports {
		p.removeRules(containerIP, pm)
	}
}

func (p *PortPublisher) addRules(containerIP string, pm types.PortMapping) error {
	dnat := []string{
		"-t", "nat", "-A", "PREROUTING",
		"-p", "tcp", "--dport", fmt.Sprintf("%d", pm.HostPort),
		"-j", "DNAT", "--to-destination", fmt.Sprintf("%s:%d", containerIP, pm.ContainerPort),
	}
	if err := runIPTables(dnat); err != nil {
		return fmt.Errorf("DNAT rule: %w", err)
	}

	masq := []string{
		"-t", "nat", "-A", "POSTROUTING",
		"-p", "tcp", "-d", containerIP, "--dport", fmt.Sprintf("%d", pm.ContainerPort),
		"-j", "MASQUERADE",
	}
	if err := runIPTables(masq); err != nil {
		p.removeRules(containerIP, pm)
		return fmt.Errorf("MASQUERADE rule: %w", err)
	}

	forward := []string{
		"-A", "FORWARD",
		"-p", "tcp", "-d", containerIP, "--dport", fmt.Sprintf("%d", pm.ContainerPort),
		"-j", "ACCEPT",
	}
	if err := runIPTables(forward); err != nil {
		p.removeRules(containerIP, pm)
		return fmt.Errorf("FORWARD rule: %w", err)
	}
	return nil
}

func (p *PortPublisher) removeRules(containerIP string, pm types.PortMapping) {
	rules := [][]string{
		{"-t", "nat", "-D", "PREROUTING", "-p", "tcp", "--dport", fmt.Sprintf("%d", pm.HostPort),
			"-j", "DNAT", "--to-destination", fmt.Sprintf("%s:%d", containerIP, pm.ContainerPort)},
		{"-t", "nat", "-D", "POSTROUTING", "-p", "tcp", "-d", containerIP,
			"--dport", fmt.Sprintf("%d", pm.ContainerPort), "-j", "MASQUERADE"},
		{"-D", "FORWARD", "-p", "tcp", "-d", containerIP,
			"--dport", fmt.Sprintf("%d", pm.ContainerPort), "-j", "ACCEPT"},
	}
	for _, rule := range rules {
		if err := runIPTables(rule); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to remove port forwarding rule")
		}
	}
}

func runIPTables(args []string) error {
	cmd := exec.Command("iptables", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("iptables failed: %w (output: %s)", err, string(output))
	}
	return nil
}

// Published returns the port mappings currently published for uuid.
func (p *PortPublisher) Published(uuid string) []types.PortMapping {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[uuid]
}
