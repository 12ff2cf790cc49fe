// Package mdns advertises a hub on the local network and finds others
package mdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"

	"github.com/vitaminmoo/gyverhub/internal/config"
)

const (
	Service = "_gyverhub._tcp"
	Domain  = "local."
)

// Info is what a hub announces
type Info struct {
	Name     string
	ID       string
	Prefix   string
	HTTPPort int
	WSPort   int
}

// TXT renders the TXT record of the service
func (i Info) TXT() []string {
	txt := []string{
		"id=" + i.ID,
		"prefix=" + i.Prefix,
		"name=" + i.Name,
	}
	if i.WSPort > 0 {
		txt = append(txt, fmt.Sprintf("ws=%d", i.WSPort))
	}
	return txt
}

// Advertise registers the service until the returned func is called. The
// instance name is the device id so names never collide.
func Advertise(i Info) (func(), error) {
	if i.HTTPPort <= 0 {
		return nil, errors.New("mdns needs an HTTP port")
	}
	server, err := zeroconf.Register(i.ID, Service, Domain, i.HTTPPort, i.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mdns service: %w", err)
	}
	config.Log.WithFields(logrus.Fields{"service": Service, "port": i.HTTPPort}).Info("mDNS advertised")
	return server.Shutdown, nil
}

// Entry is one hub found by Browse
type Entry struct {
	Instance string
	Host     string
	Addrs    []net.IP
	Port     int
	Info     Info
}

// HTTPURL is the base URL of the hub's HTTP transport
func (e Entry) HTTPURL() string {
	host := e.Host
	if len(e.Addrs) > 0 {
		host = e.Addrs[0].String()
	}
	return "http://" + net.JoinHostPort(strings.TrimSuffix(host, "."), strconv.Itoa(e.Port))
}

// Browse collects hubs until ctx is done. Each instance is listed once.
func Browse(ctx context.Context) ([]Entry, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns resolver: %w", err)
	}
	results := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, Service, Domain, results); err != nil {
		return nil, fmt.Errorf("failed to browse: %w", err)
	}

	var out []Entry
	seen := map[string]bool{}
	for {
		select {
		case e, ok := <-results:
			if !ok {
				return out, nil
			}
			if seen[e.Instance] {
				continue
			}
			seen[e.Instance] = true
			out = append(out, fromService(e))
		case <-ctx.Done():
			return out, nil
		}
	}
}

func fromService(e *zeroconf.ServiceEntry) Entry {
	info := ParseTXT(e.Text)
	info.HTTPPort = e.Port
	addrs := append([]net.IP(nil), e.AddrIPv4...)
	addrs = append(addrs, e.AddrIPv6...)
	return Entry{
		Instance: e.Instance,
		Host:     e.HostName,
		Addrs:    addrs,
		Port:     e.Port,
		Info:     info,
	}
}

// ParseTXT reads the fields written by Info.TXT
func ParseTXT(txt []string) Info {
	var i Info
	for _, kv := range txt {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "id":
			i.ID = v
		case "prefix":
			i.Prefix = v
		case "name":
			i.Name = v
		case "ws":
			i.WSPort, _ = strconv.Atoi(v)
		}
	}
	return i
}

// PortOf extracts the port of a listen address such as ":80"
func PortOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(p)
	return n
}
