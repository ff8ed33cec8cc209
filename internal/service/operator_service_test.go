package service_test

import (
	"errors"
	"testing"

	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/service"
	"golang.org/x/crypto/bcrypt"
)

func operatorConfig(t *testing.T, secret, password string) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &config.Config{Operator: config.OperatorConfig{
		JWTSecret:    secret,
		Username:     "operator",
		PasswordHash: string(hash),
	}}
}

func TestOperatorService_LoginAndParse(t *testing.T) {
	svc := service.NewOperatorService(operatorConfig(t, "s3cret", "hunter22"))

	resp, err := svc.Login(service.LoginRequest{Username: "operator", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := svc.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "operator" || claims.Role != service.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
}

func TestOperatorService_RejectsBadCredentials(t *testing.T) {
	svc := service.NewOperatorService(operatorConfig(t, "s3cret", "hunter22"))
	for _, req := range []service.LoginRequest{
		{Username: "operator", Password: "wrong"},
		{Username: "admin", Password: "hunter22"},
	} {
		if _, err := svc.Login(req); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("Login(%s) = %v", req.Username, err)
		}
	}

	disabled := service.NewOperatorService(&config.Config{Operator: config.OperatorConfig{JWTSecret: "x", Username: "operator"}})
	if _, err := disabled.Login(service.LoginRequest{Username: "operator", Password: ""}); !domain.IsAuthError(err) {
		t.Errorf("login without a configured hash = %v", err)
	}
}

func TestOperatorService_RejectsForeignTokens(t *testing.T) {
	issuer := service.NewOperatorService(operatorConfig(t, "other-secret", "pw"))
	resp, _ := issuer.IssueToken("operator")

	svc := service.NewOperatorService(operatorConfig(t, "s3cret", "pw"))
	if _, err := svc.ParseToken(resp.AccessToken); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("foreign token = %v", err)
	}
	if _, err := svc.ParseToken("not-a-jwt"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("garbage token = %v", err)
	}
}
