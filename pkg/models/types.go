package models

// Endpoint names one side of a mirror operation
type Endpoint string

const (
	EndpointLocal  Endpoint = "local"
	EndpointRemote Endpoint = "remote"
)

// ParseEndpoint maps a command line token to an Endpoint
func ParseEndpoint(s string) (Endpoint, bool) {
	switch Endpoint(s) {
	case EndpointLocal, EndpointRemote:
		return Endpoint(s), true
	}
	return "", false
}

// Direction is the source and destination of a mirror
type Direction struct {
	From Endpoint
	To   Endpoint
}

func (d Direction) String() string {
	return string(d.From) + " -> " + string(d.To)
}

// Paths holds the fixed sync roots
type Paths struct {
	Local  string
	Remote string
}

// Resolve returns the path behind an endpoint
func (p Paths) Resolve(e Endpoint) string {
	if e == EndpointLocal {
		return p.Local
	}
	return p.Remote
}
