// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-kcal-log/internal/estimator"
	"mcp-kcal-log/internal/models"
)

type LogFoodParams struct {
	Description string `json:"description" description:"Free-text description of the food eaten"`
}

type RemoveFoodParams struct {
	ID string `json:"id" description:"ID of the entry to remove"`
}

type GetHistoryParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of days to return (default all, at most 30)"`
}

// UpdateProfileParams only changes the fields that are present.
type UpdateProfileParams struct {
	Gender         *string  `json:"gender,omitempty" description:"MALE or FEMALE"`
	HeightCm       *int     `json:"height_cm,omitempty" description:"Height in centimetres"`
	WeightKg       *float64 `json:"weight_kg,omitempty" description:"Weight in kilograms; the protein target follows it"`
	TargetCalories *int     `json:"target_calories,omitempty" description:"Daily calorie target"`
	APIKey         *string  `json:"api_key,omitempty" description:"GitHub token (github_pat_...)"`
	Model          *string  `json:"model,omitempty" description:"GitHub Models model id"`
}

type logFoodResult struct {
	Logged bool              `json:"logged"`
	Entry  *models.FoodEntry `json:"entry,omitempty"`
	Error  string            `json:"error,omitempty"`
	Kind   string            `json:"kind,omitempty"`
}

type profileView struct {
	models.UserProfile
	APIKeySet bool `json:"api_key_set"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}

	return nil
}

// handleLogFood estimates a food description and logs it for today.
func (s *KcalLogServer) handleLogFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	if strings.TrimSpace(params.Description) == "" {
		return nil, fmt.Errorf("food description is required")
	}

	entry, err := s.tracker.AddFoodByDescription(ctx, params.Description)
	if err != nil {
		kind := estimator.Kind(err)
		if kind == "" {
			return nil, fmt.Errorf("failed to log food: %w", err)
		}
		return s.createJSONResponse(logFoodResult{
			Logged: false,
			Error:  s.tracker.State().LastError,
			Kind:   kind,
		})
	}

	return s.createJSONResponse(logFoodResult{Logged: true, Entry: &entry})
}

func (s *KcalLogServer) handleRemoveFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params RemoveFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if params.ID == "" {
		return nil, fmt.Errorf("entry id is required")
	}

	if err := s.tracker.RemoveFoodEntry(params.ID); err != nil {
		return nil, fmt.Errorf("failed to remove entry: %w", err)
	}
	return s.createJSONResponse(map[string]interface{}{"removed": params.ID})
}

func (s *KcalLogServer) handleGetToday(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	summary, err := s.tracker.TodaySummary()
	if err != nil {
		return nil, fmt.Errorf("failed to read today: %w", err)
	}
	return s.createJSONResponse(summary)
}

func (s *KcalLogServer) handleGetHistory(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetHistoryParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	history, err := s.tracker.History(params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve history: %w", err)
	}
	return s.createJSONResponse(history)
}

func (s *KcalLogServer) handleGetProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(viewProfile(s.tracker.Profile()))
}

func (s *KcalLogServer) handleUpdateProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateProfileParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	p := s.tracker.Profile()
	if params.Gender != nil {
		g, err := models.ParseGender(*params.Gender)
		if err != nil {
			return nil, err
		}
		p.Gender = g
	}
	if params.HeightCm != nil {
		p.HeightCm = *params.HeightCm
	}
	if params.WeightKg != nil {
		p.WeightKg = *params.WeightKg
	}
	if params.TargetCalories != nil {
		p.TargetCalories = *params.TargetCalories
	}
	if params.APIKey != nil {
		p.APIKey = *params.APIKey
	}
	if params.Model != nil {
		p.Model = *params.Model
	}

	saved, err := s.tracker.UpdateProfile(p)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(viewProfile(saved))
}

func (s *KcalLogServer) handleTestAI(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(map[string]interface{}{"status": s.tracker.TestConnection(ctx)})
}

func (s *KcalLogServer) handleCheckRollover(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	rolled := s.tracker.OnAppBecomesActive()
	return s.createJSONResponse(map[string]interface{}{
		"rolled_over": rolled,
		"today":       s.tracker.Today(),
	})
}

func (s *KcalLogServer) handleGetStatus(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(s.tracker.State())
}

func (s *KcalLogServer) handleListModels(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(map[string]interface{}{
		"models":   estimator.AvailableModels,
		"selected": s.tracker.Profile().Model,
	})
}

// viewProfile hides the token itself; callers only learn whether one is set.
func viewProfile(p models.UserProfile) profileView {
	set := p.HasAPIKey()
	p.APIKey = ""
	return profileView{UserProfile: p, APIKeySet: set}
}

func (s *KcalLogServer) registerTools() {
	s.tools = map[string]toolHandler{
		"log_food":       s.handleLogFood,
		"remove_food":    s.handleRemoveFood,
		"get_today":      s.handleGetToday,
		"get_history":    s.handleGetHistory,
		"get_profile":    s.handleGetProfile,
		"update_profile": s.handleUpdateProfile,
		"test_ai":        s.handleTestAI,
		"check_rollover": s.handleCheckRollover,
		"get_status":     s.handleGetStatus,
		"list_models":    s.handleListModels,
	}
}
