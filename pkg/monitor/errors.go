package monitor

import "errors"

var (
	ErrNoHosts            = errors.New("no AMI hosts configured")
	ErrHostMissingAddress = errors.New("AMI host entry missing address")
)
