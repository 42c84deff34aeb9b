package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignedReadURLSuccess(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	client := &Client{
		defaultBucket: "bucket",
		urlExpiry:     5 * time.Minute,
		signer: &urlSigner{
			email: "signer@example.com",
			key:   key,
		},
	}

	object := "documents/product/file.pdf"
	urlStr, err := client.SignedReadURL(object)
	if err != nil {
		t.Fatalf("SignedReadURL returned error: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}

	if !strings.EqualFold(parsed.Host, "storage.googleapis.com") {
		t.Fatalf("unexpected host %s", parsed.Host)
	}
	if parsed.Path != "/bucket/"+object {
		t.Fatalf("unexpected path %s", parsed.Path)
	}

	values := parsed.Query()
	if got := values.Get("GoogleAccessId"); got != "signer@example.com" {
		t.Fatalf("unexpected GoogleAccessId %q", got)
	}

	expireParam := values.Get("Expires")
	if expireParam == "" {
		t.Fatalf("Expires missing")
	}
	expiration, err := strconv.ParseInt(expireParam, 10, 64)
	if err != nil {
		t.Fatalf("parse expires: %v", err)
	}
	window := time.Until(time.Unix(expiration, 0))
	if window <= 0 || window > 5*time.Minute+time.Second {
		t.Fatalf("unexpected expiry window %v", window)
	}

	signature := values.Get("Signature")
	if signature == "" {
		t.Fatalf("signature missing")
	}
	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}

	data := []byte("GET\n\n\n" + expireParam + "\n/bucket/" + object)
	hash := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
}

func TestSignedReadURLRequiresSigner(t *testing.T) {
	t.Parallel()

	client := &Client{defaultBucket: "bucket", urlExpiry: time.Minute}
	if _, err := client.SignedReadURL("file.pdf"); err == nil {
		t.Fatal("expected error without service account signer")
	}
}

func TestSignedReadURLRequiresObjectKey(t *testing.T) {
	t.Parallel()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	client := &Client{
		defaultBucket: "bucket",
		urlExpiry:     time.Minute,
		signer:        &urlSigner{email: "signer@example.com", key: key},
	}
	if _, err := client.SignedReadURL("  "); err == nil {
		t.Fatal("expected error for empty object key")
	}
}
