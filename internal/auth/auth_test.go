package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"signal-market/internal/models"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

func TestGenerateAndValidateToken(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken(&models.User{ID: 7, WalletAddress: testWallet, Chain: models.ChainEVM})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 7 || claims.WalletAddress != testWallet || claims.Chain != models.ChainEVM {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	InitJWT("other-secret")
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	InitJWT("test-secret")

	log := logrus.New()
	log.SetOutput(io.Discard)

	r := gin.New()
	r.GET("/me", AuthMiddleware(log), func(c *gin.Context) {
		addr, _ := GetWalletAddress(c)
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"wallet": addr, "id": id})
	})

	token, err := GenerateToken(&models.User{ID: 1, WalletAddress: testWallet, Chain: models.ChainEVM})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
