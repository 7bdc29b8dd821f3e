package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/cronograma/apps/api/echo"
	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/week"
	testutil "github.com/trezcool/cronograma/tests"
)

func Test_subjectApi_list(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.sv", "", true, false)
	psc := testutil.CreateSubject(t, schedRepo, usr.ID, "PSC", 2)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	testutil.CreateSubject(t, schedRepo, other.ID, "DDP", 0)

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/subjects", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "own subjects by order", method: http.MethodGet, path: "/v1/subjects", token: getToken(t, usr), wantData: marshalList(t, ace, psc)},
		{name: "empty", method: http.MethodGet, path: "/v1/subjects", token: getToken(t, testutil.CreateUser(t, usrRepo, "New", "newbie", "", "", true, false)), wantData: marshalList(t)},
	})
}

func Test_subjectApi_create(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "code required", body: []byte(`{"name": "Contabilidad"}`), wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"code": "this field is required"})},
		{
			name: "code charset", body: []byte(`{"code": "AC-E"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"code": "only alphanumeric characters and underscores are allowed"}),
		},
		{
			name: "code taken (any case)", body: []byte(`{"code": " ace "}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"code": schedule.ErrSubjectCodeExists.Error()}),
		},
		{name: "created", body: []byte(`{"code": "ofc", "name": " Ofimática ", "order_index": 3}`), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/subjects"
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var sbj schedule.Subject
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sbj))
				assert.NotEmpty(t, sbj.ID)
				assert.Equal(t, "OFC", sbj.Code)
				assert.Equal(t, "Ofimática", sbj.Name)
				assert.Equal(t, 3, sbj.OrderIndex)
			}
		})
	}
}

func Test_subjectApi_seed(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	token := getToken(t, usr)

	runHTTPTests(t, []httpTest{
		{name: "seeded", method: http.MethodPost, path: "/v1/subjects/seed", token: token, wantData: marshalObj(t, echoapi.SeedResponse{Seeded: true})},
		{name: "already has subjects", method: http.MethodPost, path: "/v1/subjects/seed", token: token, wantData: marshalObj(t, echoapi.SeedResponse{Seeded: false})},
	})

	subjects, err := schedRepo.QuerySubjects(context.Background(), usr.ID)
	require.NoError(t, err)
	var codes []string
	for _, sbj := range subjects {
		codes = append(codes, sbj.Code)
	}
	assert.Equal(t, conf.Schedule.SeedSubjects, codes)
}

func Test_subjectApi_detail(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.sv", "", true, false)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	aco := testutil.CreateSubject(t, schedRepo, usr.ID, "ACO", 2)
	foreign := testutil.CreateSubject(t, schedRepo, other.ID, "DDP", 1)
	ev := testutil.CreateEvent(t, schedRepo, schedule.Event{
		OwnerID: usr.ID, SubjectID: ace.ID, Title: "Parcial", Type: schedule.TypeGradedDelivery, Date: week.MustParse("2024-03-05"),
	})
	token := getToken(t, usr)

	runHTTPTests(t, []httpTest{
		{name: "foreign subject (hidden)", method: http.MethodPut, path: "/v1/subjects/" + foreign.ID, token: token, body: []byte(`{"code": "LOL"}`), wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "unknown subject", method: http.MethodDelete, path: "/v1/subjects/lol", token: token, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{
			name: "code taken by sibling", method: http.MethodPut, path: "/v1/subjects/" + ace.ID, token: token, body: []byte(`{"code": "aco"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"code": schedule.ErrSubjectCodeExists.Error()}),
		},
		{
			name: "keeps own code", method: http.MethodPut, path: "/v1/subjects/" + ace.ID, token: token, body: []byte(`{"code": "ace", "name": "Análisis", "order_index": 5}`),
			wantData: marshalObj(t, schedule.Subject{ID: ace.ID, Code: "ACE", Name: "Análisis", OrderIndex: 5, CreatedAt: ace.CreatedAt}),
		},
		{name: "deleted", method: http.MethodDelete, path: "/v1/subjects/" + ace.ID, token: token, wantCode: http.StatusNoContent},
		{name: "deleted is gone", method: http.MethodDelete, path: "/v1/subjects/" + ace.ID, token: token, wantCode: http.StatusNotFound},
	})

	// events follow their subject
	_, err := schedRepo.GetEvent(context.Background(), usr.ID, ev.ID)
	assert.Equal(t, schedule.ErrEventNotFound, err)
	_, err = schedRepo.GetSubject(context.Background(), usr.ID, aco.ID)
	assert.NoError(t, err)
}

func Test_subjectApi_writeConflicts(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	testutil.CreateSubject(t, schedRepo, usr.ID, "ACO", 2)
	token := getToken(t, usr)
	srv := newServerWith(staleChecksService{schedule.NewService(schedRepo, nil, conf)})
	codeTaken := marshalObj(t, map[string]string{"code": schedule.ErrSubjectCodeExists.Error()})

	tests := []httpTest{
		{name: "create with a taken code", method: http.MethodPost, path: "/v1/subjects", body: []byte(`{"code": "ace"}`), wantCode: http.StatusBadRequest, wantData: codeTaken},
		{name: "update to a taken code", method: http.MethodPut, path: "/v1/subjects/" + ace.ID, body: []byte(`{"code": "aco"}`), wantCode: http.StatusBadRequest, wantData: codeTaken},
		{
			name: "update a deleted subject", method: http.MethodPut, path: "/v1/subjects/7f1a3c1e-0000-4000-8000-000000000000", body: []byte(`{"code": "NEW"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
