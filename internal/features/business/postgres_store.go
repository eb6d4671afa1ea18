package business

import (
	"context"
	"database/sql"
	"time"

	"insure-crm/internal/database"
)

// PostgresStore reads the CRM's relational tables (profiles, clients, pipeline_stages, meetings).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(pg *database.PostgresDB) *PostgresStore {
	return &PostgresStore{db: pg.DB}
}

const agentColumns = `id, coalesce(full_name, ''), coalesce(email, ''), coalesce(phone, ''), coalesce(role, 'agent'), is_active`

func (s *PostgresStore) ListActiveAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM profiles WHERE is_active = true ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Role, &a.Active); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *PostgresStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	err := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM profiles WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Role, &a.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const clientColumns = `id, agent_id, coalesce(full_name, ''), coalesce(phone, ''), coalesce(email, ''), birth_date,
	coalesce(importance, 'medium'), coalesce(current_stage_id::text, ''), stage_changed_at, contracted_at, created_at, updated_at`

func scanClient(scan func(dest ...interface{}) error) (Client, error) {
	var (
		c              Client
		importance     string
		birth          sql.NullTime
		stageChangedAt sql.NullTime
		contractedAt   sql.NullTime
	)
	err := scan(&c.ID, &c.AgentID, &c.Name, &c.Phone, &c.Email, &birth, &importance, &c.StageID,
		&stageChangedAt, &contractedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Importance = Importance(importance)
	c.BirthDate = nullTime(birth)
	c.StageChangedAt = nullTime(stageChangedAt)
	c.ContractedAt = nullTime(contractedAt)
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context, agentID string) ([]Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE agent_id = $1`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *PostgresStore) GetClient(ctx context.Context, agentID, clientID string) (*Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 AND agent_id = $2`, clientID, agentID)
	c, err := scanClient(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) ListStages(ctx context.Context, agentID string) ([]PipelineStage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, name, "order" FROM pipeline_stages WHERE agent_id = $1 ORDER BY "order"`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []PipelineStage
	for rows.Next() {
		var st PipelineStage
		if err := rows.Scan(&st.ID, &st.AgentID, &st.Name, &st.Order); err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func (s *PostgresStore) GetStage(ctx context.Context, agentID, stageID string) (*PipelineStage, error) {
	var st PipelineStage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, name, "order" FROM pipeline_stages WHERE id = $1 AND agent_id = $2`, stageID, agentID).
		Scan(&st.ID, &st.AgentID, &st.Name, &st.Order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const meetingQuery = `SELECT m.id, m.agent_id, coalesce(m.client_id::text, ''), coalesce(c.full_name, ''),
	coalesce(m.title, ''), coalesce(m.location, ''), m.scheduled_at, m.status
	FROM meetings m LEFT JOIN clients c ON c.id = m.client_id`

func scanMeeting(scan func(dest ...interface{}) error) (Meeting, error) {
	var (
		m      Meeting
		status string
	)
	err := scan(&m.ID, &m.AgentID, &m.ClientID, &m.ClientName, &m.Title, &m.Location, &m.ScheduledAt, &status)
	m.Status = MeetingStatus(status)
	return m, err
}

func (s *PostgresStore) ListMeetings(ctx context.Context, agentID string, from, to time.Time) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		meetingQuery+` WHERE m.agent_id = $1 AND m.scheduled_at >= $2 AND m.scheduled_at < $3 ORDER BY m.scheduled_at`,
		agentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows.Scan)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (s *PostgresStore) GetMeeting(ctx context.Context, agentID, meetingID string) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, meetingQuery+` WHERE m.id = $1 AND m.agent_id = $2`, meetingID, agentID)
	m, err := scanMeeting(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
