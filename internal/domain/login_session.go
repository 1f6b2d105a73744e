package domain

import "time"

type LoginState string

const (
	LoginStatePending       LoginState = "pending"
	LoginStateQRIssued      LoginState = "qr_issued"
	LoginStateAuthenticated LoginState = "authenticated"
	LoginStateFailed        LoginState = "failed"
)

// LoginSession is the state of one in-flight QR login attempt. It lives only
// as long as the attempt.
type LoginSession struct {
	TempID    string
	Origin    string
	QRImage   []byte
	QRCode    string
	State     LoginState
	CreatedAt time.Time
}

func (s LoginSession) HasQR() bool {
	return len(s.QRImage) > 0
}
