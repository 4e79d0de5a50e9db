// Package clientinfo turns inbound request headers into the raw and derived
// client fields stored with every click. Nothing here performs I/O.
package clientinfo

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Request holds the raw client context captured from headers.
// IP is taken from proxy headers and is advisory only: without a trusted
// proxy in front, clients can set it to anything.
type Request struct {
	IP        *string
	UserAgent *string
	Referrer  *string
}

// Device is the classification derived from a user agent.
type Device struct {
	Device  *string
	Browser *string
	OS      *string
}

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// FromHeaders extracts IP, user agent and referrer. Missing values are nil.
func FromHeaders(h http.Header) Request {
	return Request{
		IP:        clientIP(h),
		UserAgent: nonEmpty(h.Get("User-Agent")),
		Referrer:  nonEmpty(h.Get("Referer")),
	}
}

func clientIP(h http.Header) *string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := nonEmpty(first); ip != nil {
			return ip
		}
	}
	if ip := nonEmpty(h.Get("X-Real-IP")); ip != nil {
		return ip
	}
	return nonEmpty(h.Get("CF-Connecting-IP"))
}

// Classify parses the user agent. A nil or blank agent yields an empty Device.
func Classify(userAgent *string) Device {
	if userAgent == nil || strings.TrimSpace(*userAgent) == "" {
		return Device{}
	}

	ua := useragent.New(*userAgent)
	device := deviceType(ua, *userAgent)

	name, _ := ua.Browser()
	return Device{
		Device:  &device,
		Browser: nonEmpty(name),
		OS:      nonEmpty(ua.OSInfo().Name),
	}
}

func deviceType(ua *useragent.UserAgent, raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case ua.Bot():
		return DeviceBot
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		strings.Contains(lower, "android") && !strings.Contains(lower, "mobile"):
		return DeviceTablet
	case ua.Mobile():
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
