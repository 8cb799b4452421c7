package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/momentohub/MomentoBot/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// marshalProfileColumns serializes the JSON document columns of a profile.
func marshalProfileColumns(p models.UserProfile) (profileJSON, progressJSON, scoringJSON any, err error) {
	if len(p.Profile) > 0 {
		b, merr := json.Marshal(p.Profile)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal profile: %w", merr)
		}
		profileJSON = string(b)
	}
	b, merr := json.Marshal(p.Progress)
	if merr != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal progress: %w", merr)
	}
	progressJSON = string(b)
	if p.Scoring != nil {
		b, merr := json.Marshal(p.Scoring)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal scoring: %w", merr)
		}
		scoringJSON = string(b)
	}
	return profileJSON, progressJSON, scoringJSON, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUserProfile scans one profile row, returning nil for sql.ErrNoRows.
func scanUserProfile(row rowScanner) (*models.UserProfile, error) {
	var p models.UserProfile
	var profileJSON, progressJSON, scoringJSON sql.NullString
	err := row.Scan(&p.ID, &p.Status, &profileJSON, &progressJSON, &scoringJSON, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user profile failed: %w", err)
	}
	if profileJSON.Valid && profileJSON.String != "" {
		if err := json.Unmarshal([]byte(profileJSON.String), &p.Profile); err != nil {
			slog.Error("store: failed to unmarshal profile column", "error", err, "userID", p.ID)
			p.Profile = make(map[string]map[string]any)
		}
	}
	if progressJSON.Valid && progressJSON.String != "" {
		if err := json.Unmarshal([]byte(progressJSON.String), &p.Progress); err != nil {
			slog.Error("store: failed to unmarshal progress column", "error", err, "userID", p.ID)
			p.Progress = models.Progress{}
		}
	}
	if scoringJSON.Valid && scoringJSON.String != "" {
		var snap models.ScoringSnapshot
		if err := json.Unmarshal([]byte(scoringJSON.String), &snap); err != nil {
			slog.Error("store: failed to unmarshal scoring column", "error", err, "userID", p.ID)
		} else {
			p.Scoring = &snap
		}
	}
	return &p, nil
}

// collectUserProfiles drains rows of user profiles.
func collectUserProfiles(rows *sql.Rows) ([]models.UserProfile, error) {
	var out []models.UserProfile
	for rows.Next() {
		p, err := scanUserProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user profile rows: %w", err)
	}
	return out, nil
}

// collectHistory drains message rows ordered newest-first into a
// chronological history.
func collectHistory(rows *sql.Rows) (models.ConversationHistory, error) {
	var msgs []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		var toolCallID, toolName sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &toolCallID, &toolName, &m.Timestamp); err != nil {
			return models.ConversationHistory{}, fmt.Errorf("scan conversation message failed: %w", err)
		}
		m.ToolCallID = toolCallID.String
		m.ToolName = toolName.String
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return models.ConversationHistory{}, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	// Reverse newest-first into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return models.ConversationHistory{Messages: msgs}, nil
}
