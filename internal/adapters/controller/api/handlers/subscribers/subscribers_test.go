package subscribers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/handlers/subscribers"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type fakeSubscriberService struct {
	registered []dto.SubscriberCreate
	err        error
	known      map[string]bool
}

func (f *fakeSubscriberService) Register(_ context.Context, in dto.SubscriberCreate) (*dto.Subscriber, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, in)
	return &dto.Subscriber{ID: uint(len(f.registered)), Email: in.Email, IsSubscribed: true}, nil
}

func (f *fakeSubscriberService) SetSubscribed(_ context.Context, email string, subscribed bool) (*dto.Subscriber, error) {
	if !f.known[email] {
		return nil, nil
	}
	return &dto.Subscriber{ID: 1, Email: email, IsSubscribed: subscribed}, nil
}

func serve(svc *fakeSubscriberService, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	subscribers.NewHandler(logger.Nop(), svc).Setup(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestRegister(t *testing.T) {
	svc := &fakeSubscriberService{}
	w := serve(svc, http.MethodPost, "/subscribers", `{"email":"a@example.com","latitude":0.35,"longitude":32.58}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"id":1,"email":"a@example.com","is_subscribed":true,"latitude":null,"longitude":null}}`, w.Body.String())
	assert.Len(t, svc.registered, 1)
	assert.Equal(t, 0.35, svc.registered[0].Latitude)
}

func TestRegister_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"bad json", nil, `{"email":`, http.StatusBadRequest},
		{"unknown field", nil, `{"password":"x"}`, http.StatusBadRequest},
		{"invalid", errorz.ErrInvalidInput, `{"email":"x"}`, http.StatusBadRequest},
		{"exists", errorz.ErrSubscriberExists, `{"email":"a@example.com"}`, http.StatusConflict},
		{"storage", errors.New("db down"), `{"email":"a@example.com"}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(&fakeSubscriberService{err: tc.err}, http.MethodPost, "/subscribers", tc.body)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestSubscription(t *testing.T) {
	svc := &fakeSubscriberService{known: map[string]bool{"a@example.com": true}}

	w := serve(svc, http.MethodPut, "/subscribers/subscription", `{"email":"a@example.com","subscribed":false}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_subscribed":false`)

	w = serve(svc, http.MethodPut, "/subscribers/subscription", `{"email":"b@example.com","subscribed":false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(svc, http.MethodPut, "/subscribers/subscription", `{"subscribed":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
