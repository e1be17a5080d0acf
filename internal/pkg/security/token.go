package security

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("token is invalid")

// Claims 会话令牌中客户端关心的声明
type Claims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseUnverified 解析令牌声明但不校验签名，签名由服务端负责
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}
	return claims, nil
}

// UserIDFromToken 取出当前用户 ID，userId 缺失时回退到 sub
func UserIDFromToken(token string) (int64, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return 0, err
	}
	if claims.UserID > 0 {
		return claims.UserID, nil
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}
