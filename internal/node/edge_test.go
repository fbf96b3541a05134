package node

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RentalGrid/RentalGrid/internal/apperr"
	"github.com/RentalGrid/RentalGrid/internal/contract"
	"github.com/RentalGrid/RentalGrid/internal/protocol"
)

func credentials(email, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + password))
}

// newEdgeFixture 总部节点 + 一个普通用户和一个员工账户。
func newEdgeFixture(t *testing.T) (*Context, *pipeChannel, *Edge) {
	t.Helper()
	nc, ch := newTestContext(t, 0)

	for _, in := range []*contract.CreateAccountInput{
		{FullName: "Cara Customer", Email: "cara@example.com", Password: "secret1"},
		{FullName: "Sam Staff", Email: "sam@example.com", Password: "secret1", Staff: true},
	} {
		if _, err := nc.Users.CreateAccount(context.Background(), in); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
	return nc, ch, NewEdge(nc)
}

func postEdge(t *testing.T, e *Edge, req *protocol.EdgeRequest) *protocol.EdgeResponse {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("edge must answer HTTP 200, got %d", rec.Code)
	}
	resp := &protocol.EdgeResponse{}
	if err := json.NewDecoder(rec.Body).Decode(resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestEdgeGuestGetBranches(t *testing.T) {
	_, _, e := newEdgeFixture(t)

	resp := postEdge(t, e, &protocol.EdgeRequest{OperationCode: protocol.OpGetBranches})
	if resp.Status != apperr.StatusOK {
		t.Fatalf("expected 200, got %d %s", resp.Status, resp.Error)
	}
	var branches []contract.Branch
	if err := json.Unmarshal(resp.Payload, &branches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %+v", branches)
	}
}

func TestEdgeAuthenticationTiers(t *testing.T) {
	_, _, e := newEdgeFixture(t)

	// 用户级操作：无凭据拒绝
	resp := postEdge(t, e, &protocol.EdgeRequest{OperationCode: protocol.OpGetAccountDetails})
	if resp.Status != apperr.StatusUnauthorized {
		t.Fatalf("missing credentials must be 401, got %d", resp.Status)
	}

	resp = postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpGetAccountDetails,
		CredentialBlob: credentials("cara@example.com", "secret1"),
	})
	if resp.Status != apperr.StatusOK {
		t.Fatalf("valid user credentials rejected: %d %s", resp.Status, resp.Error)
	}

	// 员工级操作：普通用户拒绝，员工放行
	search, _ := json.Marshal(&contract.SearchUserInput{Email: "cara@example.com"})
	resp = postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpSearchUser,
		CredentialBlob: credentials("cara@example.com", "secret1"),
		Payload:        search,
	})
	if resp.Status != apperr.StatusUnauthorized {
		t.Fatalf("customer on staff operation must be 401, got %d", resp.Status)
	}

	resp = postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpSearchUser,
		CredentialBlob: credentials("sam@example.com", "secret1"),
		Payload:        search,
	})
	if resp.Status != apperr.StatusOK {
		t.Fatalf("staff credentials rejected: %d %s", resp.Status, resp.Error)
	}
}

func TestEdgeGuestSignupCannotGrantStaff(t *testing.T) {
	nc, _, e := newEdgeFixture(t)

	payload, _ := json.Marshal(&contract.CreateAccountInput{
		FullName: "Eve", Email: "eve@example.com", Password: "secret1", Staff: true,
	})
	resp := postEdge(t, e, &protocol.EdgeRequest{OperationCode: protocol.OpCreateAccount, Payload: payload})
	if resp.Status != apperr.StatusOK {
		t.Fatalf("signup failed: %d %s", resp.Status, resp.Error)
	}

	// 游客通道落库的账户必须是非员工
	if _, err := nc.Users.Authenticate(context.Background(), "eve@example.com", "secret1", true); !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("guest signup produced a staff account")
	}
}

func TestEdgeSoftClose(t *testing.T) {
	nc, _, e := newEdgeFixture(t)
	nc.RequestStop()

	resp := postEdge(t, e, &protocol.EdgeRequest{OperationCode: protocol.OpGetBranches})
	if resp.Status != apperr.StatusUnavailable {
		t.Fatalf("stopping node must answer 503, got %d", resp.Status)
	}
}

func TestEdgeRelayPassesBranchAnswerVerbatim(t *testing.T) {
	_, ch, e := newEdgeFixture(t)
	ch.respond = func(dest, tag int, body []byte) (*protocol.BranchResponse, error) {
		return &protocol.BranchResponse{OperationCode: tag, Status: apperr.StatusInvalid, Error: "Vehicle unavailable"}, nil
	}

	payload, _ := json.Marshal(&contract.SearchVehicleInput{VehicleTypeID: 0})
	resp := postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpSearchAllVehicles,
		CredentialBlob: credentials("sam@example.com", "secret1"),
		BranchID:       1,
		Payload:        payload,
	})
	if resp.Status != apperr.StatusInvalid || resp.Error != "Vehicle unavailable" {
		t.Fatalf("branch answer must pass through verbatim: %+v", resp)
	}
}

func TestEdgeShutdownBroadcast(t *testing.T) {
	nc, ch, e := newEdgeFixture(t)
	ch.respond = func(dest, tag int, body []byte) (*protocol.BranchResponse, error) {
		return &protocol.BranchResponse{OperationCode: tag, Status: apperr.StatusOK}, nil
	}

	resp := postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpShutdownSystem,
		CredentialBlob: credentials("sam@example.com", "secret1"),
	})
	if resp.Status != apperr.StatusOK {
		t.Fatalf("shutdown with all branches acknowledging must be 200, got %d %s", resp.Status, resp.Error)
	}
	if !nc.Stopping() {
		t.Fatalf("head must stop after broadcast")
	}
}

func TestEdgeShutdownReportsUnreachableBranches(t *testing.T) {
	nc, ch, e := newEdgeFixture(t)
	ch.respond = func(dest, tag int, body []byte) (*protocol.BranchResponse, error) {
		if dest == 2 {
			return nil, errors.New("connection refused")
		}
		return &protocol.BranchResponse{OperationCode: tag, Status: apperr.StatusOK}, nil
	}

	resp := postEdge(t, e, &protocol.EdgeRequest{
		OperationCode:  protocol.OpShutdownSystem,
		CredentialBlob: credentials("sam@example.com", "secret1"),
	})
	if resp.Status != apperr.StatusInternal {
		t.Fatalf("unacknowledged branch must surface as 500, got %d", resp.Status)
	}
	if !nc.Stopping() {
		t.Fatalf("head must still stop even when a branch is unreachable")
	}
}
