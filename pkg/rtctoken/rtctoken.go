// Package rtctoken issues short-lived media-plane channel tokens binding
// (channel, uid, role). The Issuer interface keeps the signing vendor
// swappable; the default implementation signs locally with HMAC-SHA256.
package rtctoken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// Roles a token can grant on the channel.
const (
	RolePublisher  = "PUBLISHER"
	RoleSubscriber = "SUBSCRIBER"
)

type Request struct {
	Channel string
	UID     uint32
	Role    string
	TTL     time.Duration
}

type Token struct {
	Value     string
	Channel   string
	UID       uint32
	ExpiresAt time.Time
}

type Issuer interface {
	Issue(ctx context.Context, req Request) (*Token, error)
}

// UIDFromUserID derives a stable 32-bit RTC uid from a user id (FNV-1a of
// the decimal form), masked to 31 bits to stay positive in signed clients.
func UIDFromUserID(userID uint) uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", userID)
	return h.Sum32() & 0x7fffffff
}

// HMACIssuer signs tokens with the app certificate. The wire format is
// appID.channel.uid.role.exp.signature, base64url overall.
type HMACIssuer struct {
	AppID          string
	AppCertificate string
}

func NewHMACIssuer(appID, appCertificate string) *HMACIssuer {
	return &HMACIssuer{AppID: appID, AppCertificate: appCertificate}
}

func (i *HMACIssuer) Issue(ctx context.Context, req Request) (*Token, error) {
	if req.Channel == "" {
		return nil, fmt.Errorf("rtctoken: empty channel")
	}
	if req.Role != RolePublisher && req.Role != RoleSubscriber {
		return nil, fmt.Errorf("rtctoken: unknown role %q", req.Role)
	}
	exp := time.Now().Add(req.TTL)
	payload := fmt.Sprintf("%s.%s.%d.%s.%d", i.AppID, req.Channel, req.UID, req.Role, exp.Unix())
	mac := hmac.New(sha256.New, []byte(i.AppCertificate))
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)
	value := base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(sig)
	return &Token{Value: value, Channel: req.Channel, UID: req.UID, ExpiresAt: exp}, nil
}

// Verify checks a token produced by Issue; used by tests and local tools.
func (i *HMACIssuer) Verify(value string, now time.Time) (bool, error) {
	dot := strings.LastIndexByte(value, '.')
	if dot <= 0 {
		return false, fmt.Errorf("rtctoken: malformed token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(value[:dot])
	if err != nil {
		return false, err
	}
	sig, err := base64.RawURLEncoding.DecodeString(value[dot+1:])
	if err != nil {
		return false, err
	}
	mac := hmac.New(sha256.New, []byte(i.AppCertificate))
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return false, nil
	}
	parts := strings.Split(string(payload), ".")
	if len(parts) != 5 {
		return false, fmt.Errorf("rtctoken: malformed payload")
	}
	var expUnix int64
	if _, err := fmt.Sscanf(parts[4], "%d", &expUnix); err != nil {
		return false, err
	}
	return now.Unix() < expUnix, nil
}

// StubIssuer returns inert tokens for development.
type StubIssuer struct{}

func (StubIssuer) Issue(ctx context.Context, req Request) (*Token, error) {
	exp := time.Now().Add(req.TTL)
	return &Token{
		Value:     fmt.Sprintf("stub_%s_%d_%d", req.Channel, req.UID, exp.Unix()),
		Channel:   req.Channel,
		UID:       req.UID,
		ExpiresAt: exp,
	}, nil
}
