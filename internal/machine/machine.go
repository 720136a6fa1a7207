// Package machine reports the local host's identity and network
// interfaces.
package machine

import (
	"context"
	"net"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"

	errs "socklab/internal/errors"
	"socklab/util"
)

// Interface is one network interface.
type Interface struct {
	Index int
	Name  string
	Addrs []string
}

// Info is everything the machine-info screen shows.
type Info struct {
	Hostname   string
	Addresses  []string // every address the hostname resolves to
	System     string   // e.g. "linux"
	Platform   string   // e.g. "ubuntu-24.04 (6.8.0-41-generic, x86_64)"
	Interfaces []Interface

	// Warnings lists the parts that could not be determined.  The rest
	// of Info is still valid.
	Warnings []string
}

// Collect gathers Info.  Only a missing hostname is an error; any
// other lookup that fails is recorded in Info.Warnings.
func Collect(ctx context.Context) (*Info, error) {
	info := &Info{System: runtime.GOOS}

	hs, hostErr := host.InfoWithContext(ctx)
	if hostErr == nil {
		info.Hostname = hs.Hostname
		info.System = hs.OS
		info.Platform = platform(hs)
	} else {
		info.Warnings = append(info.Warnings, "platform: "+hostErr.Error())
	}
	if info.Hostname == "" {
		name, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		info.Hostname = name
	}

	addrs, err := util.LookupHost(info.Hostname)
	if err != nil {
		info.Warnings = append(info.Warnings, "addresses: "+err.Error())
	}
	info.Addresses = addrs

	ifaces, err := interfaces(ctx)
	if err != nil {
		info.Warnings = append(info.Warnings, "interfaces: "+err.Error())
	}
	info.Interfaces = ifaces
	return info, nil
}

func platform(hs *host.InfoStat) string {
	var b strings.Builder
	b.WriteString(hs.Platform)
	if hs.PlatformVersion != "" {
		b.WriteString("-" + hs.PlatformVersion)
	}
	var extra []string
	for _, s := range []string{hs.KernelVersion, hs.KernelArch} {
		if s != "" {
			extra = append(extra, s)
		}
	}
	if len(extra) > 0 {
		b.WriteString(" (" + strings.Join(extra, ", ") + ")")
	}
	return strings.TrimSpace(b.String())
}

// interfaces prefers gopsutil's view and falls back to the standard
// library where gopsutil has no implementation.
func interfaces(ctx context.Context) ([]Interface, error) {
	return listInterfaces(ctx, psnet.InterfacesWithContext, net.Interfaces)
}

type (
	psLister  func(context.Context) (psnet.InterfaceStatList, error)
	stdLister func() ([]net.Interface, error)
)

func listInterfaces(ctx context.Context, ps psLister, std stdLister) ([]Interface, error) {
	var out []Interface
	stats, err := ps(ctx)
	if err == nil {
		for _, s := range stats {
			ifc := Interface{Index: s.Index, Name: s.Name}
			for _, a := range s.Addrs {
				ifc.Addrs = append(ifc.Addrs, a.Addr)
			}
			out = append(out, ifc)
		}
	} else {
		list, stdErr := std()
		if stdErr != nil {
			return nil, errs.Join(err, stdErr)
		}
		for _, s := range list {
			ifc := Interface{Index: s.Index, Name: s.Name}
			if addrs, err := s.Addrs(); err == nil {
				for _, a := range addrs {
					ifc.Addrs = append(ifc.Addrs, a.String())
				}
			}
			out = append(out, ifc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
