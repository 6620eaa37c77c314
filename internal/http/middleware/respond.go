package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
)

// Rejections use the same {success:false, error} body as the auth API so the
// dashboard handles every refusal the same way.
const (
	MsgLoginRequired  = "로그인이 필요합니다."
	MsgSessionInvalid = "세션이 만료되었거나 유효하지 않습니다. 다시 로그인해 주세요."
	MsgForbidden      = "접근 권한이 없습니다."
	MsgTooManyCalls   = "요청이 너무 많습니다. 잠시 후 다시 시도해 주세요."
)

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(auth.Result{Success: false, Error: msg})
}
