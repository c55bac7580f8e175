package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "organchain/internal/jwt_token"
	"organchain/internal/models"
	"organchain/internal/profile/handler/mocks"
	"organchain/pkg/domain"
	dErrors "organchain/pkg/domain-errors"
	"organchain/pkg/testutil"
)

const (
	adminToken = "coordinator-token"
	ownerAddr  = "0xab00000000000000000000000000000000000012"
	otherAddr  = "0xcd00000000000000000000000000000000000034"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	jwt     *jwttoken.JWTService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.jwt = jwttoken.NewJWTService("test-signing-key", "organchain", "profile-store")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, jwttoken.NewJWTServiceAdapter(s.jwt), adminToken, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) bearer(req *http.Request, addr string) *http.Request {
	token, err := s.jwt.GenerateServiceToken(domain.MustParseAddress(addr), "donor-cli", time.Minute)
	s.Require().NoError(err)
	return testutil.WithBearer(req, token)
}

func createBody(addr string) map[string]any {
	return map[string]any{
		"walletAddress": addr,
		"name":          "Ada Donor",
		"age":           34,
		"bloodType":     "o+",
		"email":         "ada@example.com",
		"organs":        []string{"Kidney", "liver"},
	}
}

func (s *HandlerSuite) TestCreateDonor() {
	s.Run("owner creates profile", func() {
		s.service.EXPECT().CreateDonor(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *models.Profile) (*models.Profile, error) {
				s.Equal(domain.Address(ownerAddr), p.WalletAddress)
				s.Equal(domain.BloodTypeOPos, p.BloodType)
				s.Equal([]domain.Organ{domain.OrganKidney, domain.OrganLiver}, p.Organs)
				p.ID = "id-1"
				p.Status = models.StatusActive
				return p, nil
			})

		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", createBody(ownerAddr)), ownerAddr)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "walletAddress", ownerAddr)
		testutil.AssertJSONContains(s.T(), rr, "status", "active")
	})

	s.Run("missing token is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", createBody(ownerAddr))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("token for another wallet is forbidden", func() {
		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", createBody(ownerAddr)), otherAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("invalid organ is a validation error", func() {
		body := createBody(ownerAddr)
		body["organs"] = []string{"spleen"}
		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", body), ownerAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown field is a bad request", func() {
		body := createBody(ownerAddr)
		body["favouriteColour"] = "blue"
		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", body), ownerAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("duplicate wallet is a conflict", func() {
		s.service.EXPECT().CreateDonor(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAlreadyExists, "donor profile already exists for this wallet"))

		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donors", createBody(ownerAddr)), ownerAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})
}

func (s *HandlerSuite) TestGetDonor() {
	s.Run("mixed-case address is normalised", func() {
		s.service.EXPECT().GetDonor(gomock.Any(), domain.Address(ownerAddr)).
			Return(&models.Profile{WalletAddress: ownerAddr, Name: "Ada Donor"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/api/donors/0xAB00000000000000000000000000000000000012"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "name", "Ada Donor")
	})

	s.Run("unknown wallet is not found", func() {
		s.service.EXPECT().GetDonor(gomock.Any(), domain.Address(otherAddr)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "donor not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/donors/"+otherAddr))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed address is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/donors/0x123"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestListDonorsReturnsEmptyArray() {
	s.service.EXPECT().ListDonors(gomock.Any()).Return(nil, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/donors"))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq("[]", rr.Body.String())
}

func (s *HandlerSuite) TestUpdateDonor() {
	s.Run("owner marks profile inactive", func() {
		s.service.EXPECT().UpdateDonor(gomock.Any(), domain.Address(ownerAddr), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.Address, upd models.ProfileUpdate) (*models.Profile, error) {
				s.Require().NotNil(upd.Status)
				s.Equal(models.StatusInactive, *upd.Status)
				s.Nil(upd.Name)
				return &models.Profile{WalletAddress: ownerAddr, Status: models.StatusInactive}, nil
			})

		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/donors/"+ownerAddr,
			map[string]string{"status": "inactive"}), ownerAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "inactive")
	})

	s.Run("another identity cannot patch", func() {
		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/donors/"+ownerAddr,
			map[string]string{"status": "inactive"}), otherAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("missing profile is not found", func() {
		s.service.EXPECT().UpdateDonor(gomock.Any(), domain.Address(ownerAddr), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "donor not found"))

		req := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/donors/"+ownerAddr,
			map[string]string{"status": "inactive"}), ownerAddr)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *HandlerSuite) TestRecipientWritesNeedAdminToken() {
	body := map[string]any{
		"walletAddress": otherAddr,
		"name":          "Rex Recipient",
		"age":           51,
		"bloodType":     "AB-",
		"email":         "rex@example.com",
		"organNeeded":   "kidney",
		"urgencyLevel":  8,
	}

	s.Run("without admin token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/recipients", body))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("with admin token", func() {
		s.service.EXPECT().CreateRecipient(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, r *models.Recipient) (*models.Recipient, error) {
				s.Equal(8, r.UrgencyLevel)
				r.Status = models.RecipientWaiting
				return r, nil
			})

		req := testutil.WithAdminToken(testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/recipients", body), adminToken)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "status", "waiting")
	})

	s.Run("reads are public", func() {
		s.service.EXPECT().ListRecipients(gomock.Any()).Return([]*models.Recipient{{Name: "Rex Recipient"}}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/recipients"))
		testutil.AssertStatusOK(s.T(), rr)
	})
}
