package ami

import "errors"

var (
	ErrNotConnected = errors.New("not connected to AMI host")
	errLoginFailed  = errors.New("AMI login failed")
	errEmptyBanner  = errors.New("empty AMI banner")
)
