package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"stagegate/internal/domain"
	"stagegate/internal/engine"
	"stagegate/internal/repo"
)

func nowString(e engine.Engine) string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().UTC().Format(time.RFC3339)
}

func registerRules(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-notification-rule",
		Method:        http.MethodPost,
		Path:          "/notification-rules",
		Summary:       "Create notification rule",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body RuleRequest `json:"body"`
	}) (*struct {
		Body domain.NotificationRule `json:"body"`
	}, error) {
		if input.Body.EventKey == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "event_key is required", nil)
		}
		if input.Body.Stage != "" && !domain.ValidStatus(domain.Status(input.Body.Stage)) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid stage", nil)
		}
		active := true
		if input.Body.Active != nil {
			active = *input.Body.Active
		}
		rule := domain.NotificationRule{
			ID:         uuid.NewString(),
			EventKey:   input.Body.EventKey,
			Stage:      domain.Status(input.Body.Stage),
			Recipients: input.Body.Recipients,
			Active:     active,
			CreatedAt:  nowString(e),
		}
		if err := e.Repo.InsertRule(ctx, rule); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.NotificationRule `json:"body"`
		}{Body: rule}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-notification-rules",
		Method:      http.MethodGet,
		Path:        "/notification-rules",
		Summary:     "List notification rules",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.NotificationRule `json:"body"`
	}, error) {
		rules, err := e.Repo.ListRules(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if rules == nil {
			rules = []domain.NotificationRule{}
		}
		return &struct {
			Body []domain.NotificationRule `json:"body"`
		}{Body: rules}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-notification-rule",
		Method:      http.MethodPut,
		Path:        "/notification-rules/{id}",
		Summary:     "Update notification rule",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID   string      `path:"id"`
		Body RuleRequest `json:"body"`
	}) (*struct {
		Body domain.NotificationRule `json:"body"`
	}, error) {
		rule, err := e.Repo.GetRule(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.EventKey != "" {
			rule.EventKey = input.Body.EventKey
		}
		rule.Stage = domain.Status(input.Body.Stage)
		rule.Recipients = input.Body.Recipients
		if input.Body.Active != nil {
			rule.Active = *input.Body.Active
		}
		if err := e.Repo.UpdateRule(ctx, rule); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.NotificationRule `json:"body"`
		}{Body: rule}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-notification-rule",
		Method:      http.MethodDelete,
		Path:        "/notification-rules/{id}",
		Summary:     "Delete notification rule",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteRule(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDirectory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body UserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if input.Body.Email == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required", nil)
		}
		u := domain.User{
			ID:        uuid.NewString(),
			Name:      input.Body.Name,
			Email:     input.Body.Email,
			CreatedAt: nowString(e),
		}
		if err := e.Repo.InsertUser(ctx, u); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		users, err := e.Repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if users == nil {
			users = []domain.User{}
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{id}",
		Summary:     "Delete user",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteUser(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-role",
		Method:      http.MethodPut,
		Path:        "/roles/{id}",
		Summary:     "Create or update role",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body struct {
			Name string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body domain.Role `json:"body"`
	}, error) {
		role := domain.Role{ID: input.ID, Name: input.Body.Name}
		if err := e.Repo.UpsertRole(ctx, role); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Role `json:"body"`
		}{Body: role}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/roles",
		Summary:     "List roles",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Role `json:"body"`
	}, error) {
		roles, err := e.Repo.ListRoles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if roles == nil {
			roles = []domain.Role{}
		}
		return &struct {
			Body []domain.Role `json:"body"`
		}{Body: roles}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-role",
		Method:      http.MethodPut,
		Path:        "/roles/{id}/members/{user_id}",
		Summary:     "Add user to role",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		if _, err := e.Repo.GetRole(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.AssignRole(ctx, input.UserID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-role",
		Method:      http.MethodDelete,
		Path:        "/roles/{id}/members/{user_id}",
		Summary:     "Remove user from role",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		if err := e.Repo.UnassignRole(ctx, input.UserID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerOutbox(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-mail-outbox",
		Method:      http.MethodGet,
		Path:        "/mail-outbox",
		Summary:     "List outbound mail, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" minimum:"0" maximum:"500"`
	}) (*struct {
		Body []domain.OutboundMail `json:"body"`
	}, error) {
		mail, err := e.Repo.ListMail(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if mail == nil {
			mail = []domain.OutboundMail{}
		}
		return &struct {
			Body []domain.OutboundMail `json:"body"`
		}{Body: mail}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return nil, handleError(err)
		}
		plaintext := "sg_" + hex.EncodeToString(raw)
		key := domain.APIKey{
			ID:        uuid.NewString(),
			ActorID:   input.Body.ActorID,
			Name:      input.Body.Name,
			CreatedAt: nowString(e),
		}
		if err := e.Repo.InsertAPIKey(ctx, key, repo.HashAPIKey(plaintext)); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{APIKey: key, Key: plaintext}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api-keys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		keys, err := e.Repo.ListAPIKeys(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if keys == nil {
			keys = []domain.APIKey{}
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/api-keys/{id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusNotFound, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteAPIKey(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
