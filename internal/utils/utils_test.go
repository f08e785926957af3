package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("hash equals plain text")
	}
	if !VerifyPassword(hash, "hunter22") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "hunter23") {
		t.Fatal("wrong password accepted")
	}
}

func TestNewAccessTokenClaims(t *testing.T) {
	access, err := NewAccessToken("secret", 42, "u@example.com", true, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	tok, err := jwt.Parse(access.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)

	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if claims["email"] != "u@example.com" {
		t.Fatalf("email = %v", claims["email"])
	}
	if isPro, _ := claims["is_pro"].(bool); !isPro {
		t.Fatal("is_pro not carried")
	}

	wantExp := time.Now().Add(7 * 24 * time.Hour)
	if access.Exp.Before(wantExp.Add(-time.Minute)) || access.Exp.After(wantExp.Add(time.Minute)) {
		t.Fatalf("exp = %v, want about %v", access.Exp, wantExp)
	}
}

func TestAccessTokenRejectsTamperedSignature(t *testing.T) {
	access, err := NewAccessToken("secret", 42, "u@example.com", false, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	_, err = jwt.Parse(access.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("not-the-secret"), nil
	})
	if err == nil {
		t.Fatal("token verified with wrong secret")
	}
}
