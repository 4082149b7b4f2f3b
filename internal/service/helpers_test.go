package service

import "strconv"

// joinRefresh builds a refresh token from its parts.
func joinRefresh(id uint64, secret string) string {
	return strconv.FormatUint(id, 10) + "." + secret
}
