package push

import "regexp"

const (
	apnsTokenLength   = 64
	fcmTokenMinLength = 100
	fcmTokenMaxLength = 300
)

var (
	apnsTokenPattern = regexp.MustCompile(`^[a-fA-F0-9]+$`)
	fcmTokenPattern  = regexp.MustCompile(`^[A-Za-z0-9_:\-]+$`)
)

// ValidAPNSToken reports whether token looks like an APNs device token:
// exactly 64 hexadecimal characters (a 32-byte token).
func ValidAPNSToken(token string) bool {
	return len(token) == apnsTokenLength && apnsTokenPattern.MatchString(token)
}

// ValidFCMToken reports whether token looks like an FCM registration token.
// Real tokens are typically 152-163 characters; the bounds leave a safety
// margin.
func ValidFCMToken(token string) bool {
	if len(token) < fcmTokenMinLength || len(token) > fcmTokenMaxLength {
		return false
	}
	return fcmTokenPattern.MatchString(token)
}

// ValidPlatform reports whether platform is one of the accepted client
// platform identifiers.
func ValidPlatform(platform string) bool {
	switch platform {
	case "ios", "android", "web":
		return true
	}
	return false
}
