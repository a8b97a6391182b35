package domain

import "fmt"

// Credentials identify one clinic tenant on the upstream service.
type Credentials struct {
	Profile string
	Host    string
	SacID   string
	Cookie  string
}

func (c Credentials) String() string {
	return fmt.Sprintf("%s:%s", c.Profile, c.SacID)
}
