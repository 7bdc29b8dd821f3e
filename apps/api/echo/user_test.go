package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/cronograma/apps/api/echo"
	"github.com/trezcool/cronograma/core/user"
	testutil "github.com/trezcool/cronograma/tests"
)

const strongPwd = "LolC@t123"

func Test_userApi_login(t *testing.T) {
	db.Flush()

	active := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", strongPwd, true, false)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.sv", strongPwd, false, false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	reqMsg := "this field is required"

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": reqMsg, "password": reqMsg}),
		},
		{
			name: "unknown user", body: login("lol", strongPwd), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: login("hero", "lol"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", body: login("ndog", strongPwd), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: login("hero", strongPwd)},
		{name: "by email, any case", body: login(" HERO@test.sv ", strongPwd)},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var respData echoapi.LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
			require.NotEmpty(t, respData.Token)

			// the token opens the session
			me := serve(http.MethodGet, "/v1/users/me", respData.Token)
			require.Equal(t, http.StatusOK, me.Code)
			var usr user.User
			require.NoError(t, json.Unmarshal(me.Body.Bytes(), &usr))
			assert.Equal(t, active.ID, usr.ID)
			assert.False(t, usr.LastLogin.IsZero(), "last login")
		})
	}
}

func Test_userApi_me(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	ghost := user.User{ID: "ghost", Username: "ghost"}

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Invalid token", method: http.MethodGet, path: "/v1/users/me", token: "lol", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Deleted user", method: http.MethodGet, path: "/v1/users/me", token: getToken(t, ghost), wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "Current user", method: http.MethodGet, path: "/v1/users/me", token: getToken(t, usr), wantData: marshalObj(t, usr)},
	})
}

func Test_userApi_query(t *testing.T) {
	db.Flush()

	path := func(search, ordering string, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	usr1 := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.sv", "", true, false, now.Add(1*time.Hour))
	usr2 := testutil.CreateUser(t, usrRepo, "King", "user02", "king@test.sv", "", true, false, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.sv", "", true, true, now.Add(3*time.Hour))
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.sv", "", false, false, now.Add(4*time.Hour))

	adminToken := getToken(t, admin)
	empty := marshalList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, usr1), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marshalList(t, naughty, admin, usr2, usr1)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantData: empty},
		{name: "search=USE", path: path("USE", "", nil), token: adminToken, wantData: marshalList(t, usr2, usr1)},
		{name: "is_active=true", path: path("", "", bPtr(true)), token: adminToken, wantData: marshalList(t, admin, usr2, usr1)},
		{name: "is_active=false", path: path("", "", bPtr(false)), token: adminToken, wantData: marshalList(t, naughty)},
		// ordering
		{name: "order by created_at", path: path("", "created_at", nil), token: adminToken, wantData: marshalList(t, usr1, usr2, admin, naughty)},
		{name: "order by -name", path: path("", "-name", nil), token: adminToken, wantData: marshalList(t, usr1, naughty, usr2, admin)},
		{name: "unknown ordering is ignored", path: path("", "password_hash", nil), token: adminToken, wantData: marshalList(t, naughty, admin, usr2, usr1)},
		// filtering & ordering
		{name: "filtering & ordering", path: path("", "name", bPtr(true)), token: adminToken, wantData: marshalList(t, admin, usr2, usr1)},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
	}
	runHTTPTests(t, tests)
}

func Test_userApi_register(t *testing.T) {
	db.Flush()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.sv", "", true, true)
	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	adminToken := getToken(t, admin)

	newUser := func(name, uname, email, pwd, confirm string) []byte {
		return marshalObj(t, user.NewUser{Name: name, Username: uname, Email: email, Password: pwd, PasswordConfirm: confirm})
	}

	tests := []httpTest{
		{name: "Admin required", token: getToken(t, usr), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"})},
		{
			name: "username or email required", token: adminToken, wantCode: http.StatusBadRequest,
			body: newUser("Ana", "", "", strongPwd, strongPwd),
			wantData: marshalObj(t, map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name: "weak password", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Ana", "anita", "", "anita123", "anita123"),
			wantData: marshalObj(t, map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "email taken", token: adminToken, wantCode: http.StatusBadRequest,
			body:     newUser("Ana", "", "HERO@test.sv", strongPwd, strongPwd),
			wantData: marshalObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{name: "created", token: adminToken, wantCode: http.StatusCreated, body: newUser(" Ana ", "Anita", "ana@test.sv", strongPwd, strongPwd)},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var created user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, "Ana", created.Name)
				assert.Equal(t, "anita", created.Username)
				assert.True(t, created.IsActive)
				assert.False(t, created.IsAdmin)
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	db.Flush()

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.sv", "", false, false)
	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Cronograma",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     usr.Username,
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, usr), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code)
				var respData echoapi.LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &respData))
				assert.NotEmpty(t, respData.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "Old-pwd-1", true, false)
	successData := marshalObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []struct {
		httpTest
		emailSent bool
	}{
		{httpTest: httpTest{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, echoapi.PasswordResetRequest{Email: "this field is required"}),
		}},
		{httpTest: httpTest{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marshalObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marshalObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		}},
		{httpTest: httpTest{
			name: "unknown email", wantCode: http.StatusOK, body: marshalObj(t, echoapi.PasswordResetRequest{Email: "lol@test.sv"}),
			wantData: successData,
		}},
		{httpTest: httpTest{
			name: "known email", wantCode: http.StatusOK, body: marshalObj(t, echoapi.PasswordResetRequest{Email: usr.Email}),
			wantData: successData,
		}, emailSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentBefore := len(mailSvc.SentMessages())

			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)

			sent := mailSvc.SentMessages()
			if !tt.emailSent {
				assert.Len(t, sent, sentBefore)
				return
			}
			require.Len(t, sent, sentBefore+1)
			msg := sent[len(sent)-1]
			assert.Equal(t, usr.Email, msg.To[0].Address)
			assert.True(t, strings.Contains(msg.TextContent, "Hola Hero"))
			assert.True(t, strings.Contains(msg.HTMLContent, "Hero"))
			assert.True(t, strings.Contains(msg.TextContent, conf.FrontendBaseURL+"/password-reset?uid="))
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "Old-pwd-1", true, false)

	// request a reset to get a valid uid & token
	rec := serve(http.MethodPost, "/v1/users/password-reset", "", marshalObj(t, echoapi.PasswordResetRequest{Email: usr.Email}))
	require.Equal(t, http.StatusOK, rec.Code)
	sent := mailSvc.SentMessages()
	require.NotEmpty(t, sent)
	data, ok := sent[len(sent)-1].TemplateData.(map[string]string)
	require.True(t, ok)
	validUID, validToken := data["UID"], data["Token"]
	require.Equal(t, user.EncodeUID(usr), validUID)

	reqMsg := "this field is required"
	invalidToken := marshalObj(t, map[string]string{"token": "invalid token"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"token": reqMsg, "uid": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marshalObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marshalObj(t, map[string]string{"password": "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marshalObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: strongPwd, PasswordConfirm: "lol"}),
			wantData: marshalObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: validToken, UID: "bG9s", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: invalidToken,
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: invalidToken,
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marshalObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: strongPwd, PasswordConfirm: strongPwd}),
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token is single use", wantCode: http.StatusBadRequest,
			body:     marshalObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "N3w-pass!", PasswordConfirm: "N3w-pass!"}),
			wantData: invalidToken,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the new password logs in
	rec = serve(http.MethodPost, "/v1/users/login", "", marshalObj(t, echoapi.LoginRequest{Username: "hero", Password: strongPwd}))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_userApi_detail(t *testing.T) {
	db.Flush()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.sv", "", true, true)
	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.sv", "", true, false)
	adminToken, usrToken := getToken(t, admin), getToken(t, usr)

	path := func(u user.User) string { return "/v1/users/" + u.ID }

	runHTTPTests(t, []httpTest{
		{name: "retrieve self", method: http.MethodGet, path: path(usr), token: usrToken, wantData: marshalObj(t, usr)},
		{name: "retrieve other (hidden)", method: http.MethodGet, path: path(other), token: usrToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "retrieve other as admin", method: http.MethodGet, path: path(other), token: adminToken, wantData: marshalObj(t, other)},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/users/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{
			name: "non-admin cannot promote themselves", method: http.MethodPut, path: path(usr), token: usrToken,
			body: []byte(`{"is_admin": true}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "username taken", method: http.MethodPut, path: path(usr), token: usrToken,
			body: []byte(`{"username": "Other"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{name: "non-admin cannot delete", method: http.MethodDelete, path: path(usr), token: usrToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete themselves", method: http.MethodDelete, path: path(admin), token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin deletes other", method: http.MethodDelete, path: path(other), token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted is gone", method: http.MethodGet, path: path(other), token: adminToken, wantCode: http.StatusNotFound},
	})

	t.Run("update self", func(t *testing.T) {
		rec := serve(http.MethodPut, path(usr), usrToken, []byte(`{"name": " Super Hero "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Super Hero", updated.Name)
		assert.Equal(t, usr.Username, updated.Username)
		assert.Equal(t, usr.Email, updated.Email)
	})

	t.Run("admin deactivates user", func(t *testing.T) {
		rec := serve(http.MethodPut, path(usr), adminToken, []byte(`{"is_active": false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// deactivated users lose access to their schedule
		rec = serve(http.MethodGet, "/v1/subjects", usrToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})}, rec)
	})

	t.Run("destroy multiple", func(t *testing.T) {
		rec := serve(http.MethodDelete, "/v1/users?id="+admin.ID+"&id="+usr.ID, adminToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = serve(http.MethodDelete, "/v1/users?id="+usr.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		_, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
