package token

import "video_transcode_service/pkg/config"

// 這個變數會在測試時被覆蓋
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper issue a member token signed for this service
func GenerateJWTWrapper(memberID, role string) (string, error) {
	return GenerateJWTFunc(memberID, role, config.EnvConfig.TranscodeService)
}

// ParseJWTWrapper parse through the swappable func
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
