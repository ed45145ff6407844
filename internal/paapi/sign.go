package paapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	signingService   = "ProductAdvertisingAPI"
	signingAlgorithm = "AWS4-HMAC-SHA256"
)

// sign はリクエストにAWS署名バージョン4の認証ヘッダーを付与する。
// 署名対象ヘッダーはcontent-encoding / host / x-amz-date / x-amz-target。
// 呼び出し前にContent-EncodingとX-Amz-Targetが設定されている必要がある。
func sign(req *http.Request, payload []byte, accessKey, secretKey, region string, now time.Time) {
	amzDate := now.UTC().Format("20060102T150405Z")
	dateStamp := now.UTC().Format("20060102")
	req.Header.Set("X-Amz-Date", amzDate)

	host := req.URL.Host
	payloadHash := hexSHA256(payload)

	signedHeaders := "content-encoding;host;x-amz-date;x-amz-target"
	canonicalHeaders := strings.Join([]string{
		"content-encoding:" + req.Header.Get("Content-Encoding"),
		"host:" + host,
		"x-amz-date:" + amzDate,
		"x-amz-target:" + req.Header.Get("X-Amz-Target"),
	}, "\n") + "\n"

	canonicalRequest := strings.Join([]string{
		req.Method,
		req.URL.Path,
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, region, signingService, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	key := signingKey(secretKey, dateStamp, region)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, accessKey, scope, signedHeaders, signature,
	))
}

// signingKey は日付・リージョン・サービスで導出した署名鍵を返す。
func signingKey(secretKey, dateStamp, region string) []byte {
	k := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	k = hmacSHA256(k, region)
	k = hmacSHA256(k, signingService)
	return hmacSHA256(k, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
