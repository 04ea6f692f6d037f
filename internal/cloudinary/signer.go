package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// UploadFolder receives direct browser uploads. Everything in it is tagged
// ephemeral and swept after the retention window.
const (
	UploadFolder  = "modelcast/uploads"
	EphemeralTag  = "ephemeral"
	RetentionTime = 30 * time.Minute
)

// UploadSignature is the set of parameters a browser needs for a signed
// direct upload.
type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	APIKey    string `json:"apiKey"`
	CloudName string `json:"cloudName"`
	Folder    string `json:"folder"`
	Tags      string `json:"tags"`
}

// SignParams produces the Cloudinary API signature: parameters sorted by key,
// joined key=value with &, concatenated with the API secret, SHA-1 hex.
func SignParams(params map[string]string, apiSecret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + apiSecret))
	return hex.EncodeToString(sum[:])
}

// NewUploadSignature builds the signed parameter set for a direct upload into
// the ephemeral folder.
func NewUploadSignature(cloudName, apiKey, apiSecret string, now time.Time) UploadSignature {
	timestamp := now.Unix()
	params := map[string]string{
		"timestamp": strconv.FormatInt(timestamp, 10),
		"folder":    UploadFolder,
		"tags":      EphemeralTag,
	}
	return UploadSignature{
		Timestamp: timestamp,
		Signature: SignParams(params, apiSecret),
		APIKey:    apiKey,
		CloudName: cloudName,
		Folder:    UploadFolder,
		Tags:      EphemeralTag,
	}
}
