package commands

import (
	"context"

	"github.com/vitaminmoo/gyverhub/internal/mdns"
	"github.com/vitaminmoo/gyverhub/internal/stream"
)

// Browse lists the hubs advertising on the local network
func Browse(ctx context.Context, asJSON bool) error {
	entries, err := mdns.Browse(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return PrintJSON(entries)
	}
	if len(entries) == 0 {
		printf("No hubs found\n")
		return nil
	}
	for _, e := range entries {
		printf("%-10s %-16s %-12s %s\n", e.Info.ID, e.Info.Name, e.Info.Prefix, e.HTTPURL())
	}
	return nil
}

// Ports lists the serial ports a stream transport can open
func Ports(asJSON bool) error {
	ports, err := stream.ListPorts()
	if err != nil {
		return err
	}
	if asJSON {
		return PrintJSON(ports)
	}
	for _, p := range ports {
		if p.USB {
			printf("%-20s USB %s:%s %s\n", p.Name, p.VID, p.PID, p.Product)
		} else {
			printf("%s\n", p.Name)
		}
	}
	return nil
}
