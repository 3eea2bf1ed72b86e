package mmi

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// ManifestFileName is the conventional name of the manifest inside an MMU package.
const ManifestFileName = "description.json"

// MMUDescription is the manifest of a loadable MMU package. The json names match the manifests
// written by the packaging tools.
type MMUDescription struct {
	ID               string            `json:"ID"`
	Name             string            `json:"Name"`
	AssemblyName     string            `json:"AssemblyName"`
	Language         string            `json:"Language"`
	MotionType       string            `json:"MotionType,omitempty"`
	Author           string            `json:"Author,omitempty"`
	Version          string            `json:"Version,omitempty"`
	ShortDescription string            `json:"ShortDescription,omitempty"`
	LongDescription  string            `json:"LongDescription,omitempty"`
	Dependencies     []string          `json:"Dependencies,omitempty"`
	Properties       map[string]string `json:"Properties,omitempty"`
}

// IPAddress is a reachable endpoint of an adapter or a service.
type IPAddress struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// String returns the address in host:port form.
func (a IPAddress) String() string {
	return net.JoinHostPort(a.Address, strconv.Itoa(a.Port))
}

// ParseIPAddress parses a host:port string.
func ParseIPAddress(hostPort string) (IPAddress, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return IPAddress{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return IPAddress{}, errors.Wrapf(err, "invalid port in %q", hostPort)
	}
	return IPAddress{Address: host, Port: port}, nil
}

// AdapterDescription identifies an adapter towards the register.
type AdapterDescription struct {
	Name       string            `json:"name"`
	ID         string            `json:"id"`
	Language   string            `json:"language"`
	Addresses  []IPAddress       `json:"addresses,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ServiceDescription identifies an auxiliary service brokered by the register.
type ServiceDescription struct {
	Name       string            `json:"name"`
	ID         string            `json:"id"`
	Language   string            `json:"language,omitempty"`
	Addresses  []IPAddress       `json:"addresses,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}
