package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cronograma/core/schedule"
	"github.com/trezcool/cronograma/core/week"
	testutil "github.com/trezcool/cronograma/tests"
)

func weightPtr(w float64) *float64 { return &w }

func Test_eventApi_create(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.sv", "", true, false)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	foreign := testutil.CreateSubject(t, schedRepo, other.ID, "ACE", 1)
	token := getToken(t, usr)

	body := func(changes map[string]interface{}) []byte {
		data := map[string]interface{}{
			"subject_id": ace.ID,
			"title":      "Parcial 1",
			"type":       "evaluado_entrega",
			"date":       "2024-03-05",
		}
		for k, v := range changes {
			if v == nil {
				delete(data, k)
			} else {
				data[k] = v
			}
		}
		return marshalObj(t, data)
	}
	errs := func(fld, msg string) []byte { return marshalObj(t, map[string]string{fld: msg}) }

	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"subject_id": "this field is required",
				"title":      "this field cannot be blank",
				"type":       "this field is required",
				"date":       "date is required",
			}),
		},
		{name: "blank title", body: body(map[string]interface{}{"title": "   "}), wantCode: http.StatusBadRequest, wantData: errs("title", "this field cannot be blank")},
		{
			name: "unknown type", body: body(map[string]interface{}{"type": "examen"}), wantCode: http.StatusBadRequest,
			wantData: errs("type", "type must be one of evaluado_entrega, reunion or teorica"),
		},
		{
			name: "end before start", body: body(map[string]interface{}{"end_date": "2024-03-04"}), wantCode: http.StatusBadRequest,
			wantData: errs("end_date", "end_date cannot be before date"),
		},
		{
			name: "weight out of range", body: body(map[string]interface{}{"weight_percent": 150}), wantCode: http.StatusBadRequest,
			wantData: errs("weight_percent", "weight_percent must be a number between 0 and 100 (or empty)"),
		},
		{name: "malformed date", body: body(map[string]interface{}{"date": "05/03/2024"}), wantCode: http.StatusBadRequest},
		{
			name: "foreign subject", body: body(map[string]interface{}{"subject_id": foreign.ID}), wantCode: http.StatusBadRequest,
			wantData: errs("subject_id", schedule.ErrSubjectNotFound.Error()),
		},
		{name: "created", body: body(map[string]interface{}{"title": " Parcial 1 ", "weight_percent": 20}), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/events"
		tt.token = token

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var ev schedule.Event
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
				assert.NotEmpty(t, ev.ID)
				assert.Equal(t, ace.ID, ev.SubjectID)
				assert.Equal(t, "Parcial 1", ev.Title)
				assert.Equal(t, week.MustParse("2024-03-05"), ev.EndDate, "end date defaults to date")
				assert.Equal(t, weightPtr(20), ev.WeightPercent)
			}
		})
	}
}

func Test_eventApi_query(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	aco := testutil.CreateSubject(t, schedRepo, usr.ID, "ACO", 2)
	newEvent := func(sbj schedule.Subject, title, from, to string) schedule.Event {
		ev := schedule.Event{OwnerID: usr.ID, SubjectID: sbj.ID, Title: title, Type: schedule.TypeLecture, Date: week.MustParse(from)}
		if to != "" {
			ev.EndDate = week.MustParse(to)
		}
		return testutil.CreateEvent(t, schedRepo, ev)
	}
	before := newEvent(ace, "Antes", "2024-02-26", "2024-03-03")
	spanning := newEvent(aco, "Proyecto", "2024-03-01", "2024-03-05")
	inside := newEvent(ace, "Clase", "2024-03-06", "")
	monday := newEvent(ace, "Lunes siguiente", "2024-03-11", "")
	token := getToken(t, usr)

	runHTTPTests(t, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/events", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "all", method: http.MethodGet, path: "/v1/events", token: token, wantData: marshalList(t, before, spanning, inside, monday)},
		{
			name: "overlapping the week", method: http.MethodGet, path: "/v1/events?from=2024-03-04&to=2024-03-11", token: token,
			wantData: marshalList(t, spanning, inside),
		},
		{
			name: "by subject", method: http.MethodGet, path: "/v1/events?from=2024-03-04&to=2024-03-11&subject_id=" + ace.ID, token: token,
			wantData: marshalList(t, inside),
		},
		{name: "nothing", method: http.MethodGet, path: "/v1/events?from=2025-01-01", token: token, wantData: marshalList(t)},
		{
			name: "malformed date", method: http.MethodGet, path: "/v1/events?from=lol", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "from and to must be dates formatted as YYYY-MM-DD"}),
		},
		{name: "types", method: http.MethodGet, path: "/v1/events/types", token: token, wantData: marshalObj(t, schedule.EventTypes)},
	})
}

func Test_eventApi_detail(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	other := testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.sv", "", true, false)
	ace := testutil.CreateSubject(t, schedRepo, usr.ID, "ACE", 1)
	ev := testutil.CreateEvent(t, schedRepo, schedule.Event{
		OwnerID: usr.ID, SubjectID: ace.ID, Title: "Parcial", Type: schedule.TypeGradedDelivery,
		Date: week.MustParse("2024-03-05"), WeightPercent: weightPtr(25),
	})
	token := getToken(t, usr)
	path := "/v1/events/" + ev.ID

	runHTTPTests(t, []httpTest{
		{name: "retrieve", method: http.MethodGet, path: path, token: token, wantData: marshalObj(t, ev)},
		{name: "foreign event (hidden)", method: http.MethodGet, path: path, token: getToken(t, other), wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{
			name: "invalid draft", method: http.MethodPut, path: path, token: token,
			body:     []byte(`{"title": "Parcial", "type": "reunion", "date": "2024-03-05", "end_date": "2024-03-01"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"end_date": "end_date cannot be before date"}),
		},
	})

	t.Run("update", func(t *testing.T) {
		rec := serve(http.MethodPut, path, token, []byte(`{"title": "Entrega", "type": "reunion", "date": "2024-03-07", "end_date": "2024-03-09"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated schedule.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, ev.ID, updated.ID)
		assert.Equal(t, ace.ID, updated.SubjectID)
		assert.Equal(t, "Entrega", updated.Title)
		assert.Equal(t, schedule.TypeMeeting, updated.Type)
		assert.Equal(t, week.MustParse("2024-03-07"), updated.Date)
		assert.Equal(t, week.MustParse("2024-03-09"), updated.EndDate)
		assert.Nil(t, updated.WeightPercent, "weight cleared")
	})

	t.Run("update without end date", func(t *testing.T) {
		rec := serve(http.MethodPut, path, token, []byte(`{"title": "Entrega", "type": "reunion", "date": "2024-03-08"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var updated schedule.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, updated.Date, updated.EndDate)
	})

	runHTTPTests(t, []httpTest{
		{name: "foreign delete", method: http.MethodDelete, path: path, token: getToken(t, other), wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNoContent},
		{name: "deleted is gone", method: http.MethodGet, path: path, token: token, wantCode: http.StatusNotFound},
	})
}

func Test_eventApi_createOnDeletedSubject(t *testing.T) {
	db.Flush()

	usr := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.sv", "", true, false)
	srv := newServerWith(staleChecksService{schedule.NewService(schedRepo, nil, conf)})

	tt := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"subject_id": schedule.ErrSubjectNotFound.Error()}),
	}
	req, rec := newAuthRequest(http.MethodPost, "/v1/events", getToken(t, usr),
		[]byte(`{"subject_id": "gone", "title": "Parcial", "type": "teorica", "date": "2024-03-05"}`))
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
