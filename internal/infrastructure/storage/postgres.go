package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"

	"qc-vision/internal/domain/entity"
	"qc-vision/internal/domain/port"
)

const uniqueViolation = "23505"

// Schema таблицы учётных записей, журнала сессий и аномалий.
const Schema = `
CREATE TABLE IF NOT EXISTS user_admin (
	id_user  BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	role     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS operation (
	id_operation BIGSERIAL PRIMARY KEY,
	id_user      BIGINT NOT NULL REFERENCES user_admin(id_user) ON DELETE CASCADE,
	start_time   TIMESTAMPTZ NOT NULL,
	end_time     TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS class_defect (
	class_id    BIGSERIAL PRIMARY KEY,
	defect_name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS production_anomaly (
	id         BIGSERIAL PRIMARY KEY,
	image_path TEXT NOT NULL,
	class_id   BIGINT NOT NULL REFERENCES class_defect(class_id),
	x0         INTEGER NOT NULL,
	y0         INTEGER NOT NULL,
	x1         INTEGER NOT NULL,
	y1         INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// OpenPostgres открывает пул соединений и проверяет связь.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, xerrors.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, xerrors.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate создаёт таблицы и заполняет справочник классов.
func Migrate(ctx context.Context, pool *pgxpool.Pool, classNames []string) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return xerrors.Errorf("create schema: %w", err)
	}
	for _, name := range classNames {
		if _, err := pool.Exec(ctx,
			`INSERT INTO class_defect (defect_name) VALUES ($1) ON CONFLICT (defect_name) DO NOTHING`, name); err != nil {
			return xerrors.Errorf("seed class %q: %w", name, err)
		}
	}
	return nil
}

// PostgresUserRepository хранилище учётных записей в таблице user_admin
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository создаёт хранилище
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// GetByUsername возвращает пользователя по имени
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u entity.User
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT id_user, username, password, role FROM user_admin WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("select user: %w", err)
	}
	u.Role = entity.Role(role)
	return &u, nil
}

// Create добавляет пользователя
func (r *PostgresUserRepository) Create(ctx context.Context, user *entity.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_admin (username, password, role) VALUES ($1, $2, $3) RETURNING id_user`,
		user.Username, user.PasswordHash, string(user.Role)).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrUserExists
		}
		return xerrors.Errorf("insert user: %w", err)
	}
	return nil
}

// Delete удаляет пользователя
func (r *PostgresUserRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_admin WHERE username = $1`, username)
	if err != nil {
		return xerrors.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

// UpdatePassword обновляет хэш пароля
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE user_admin SET password = $1 WHERE username = $2`, passwordHash, username)
	if err != nil {
		return xerrors.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

// ListByRole возвращает пользователей роли
func (r *PostgresUserRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id_user, username, password, role FROM user_admin WHERE role = $1 ORDER BY id_user`, string(role))
	if err != nil {
		return nil, xerrors.Errorf("select users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.User, error) {
		var u entity.User
		var role string
		err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role)
		u.Role = entity.Role(role)
		return u, err
	})
	if err != nil {
		return nil, xerrors.Errorf("scan users: %w", err)
	}
	return users, nil
}

// PostgresOperationRepository журнал сессий в таблице operation
type PostgresOperationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOperationRepository создаёт журнал
func NewPostgresOperationRepository(pool *pgxpool.Pool) *PostgresOperationRepository {
	return &PostgresOperationRepository{pool: pool}
}

// Start записывает начало сессии
func (r *PostgresOperationRepository) Start(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO operation (id_user, start_time) VALUES ($1, now()) RETURNING id_operation`, userID).Scan(&id)
	if err != nil {
		return 0, xerrors.Errorf("insert operation: %w", err)
	}
	return id, nil
}

// LastID возвращает ID последней сессии пользователя
func (r *PostgresOperationRepository) LastID(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id_operation), 0) FROM operation WHERE id_user = $1`, userID).Scan(&id)
	if err != nil {
		return 0, xerrors.Errorf("select last operation: %w", err)
	}
	return id, nil
}

// Finish проставляет время окончания сессии
func (r *PostgresOperationRepository) Finish(ctx context.Context, operationID int64) error {
	if _, err := r.pool.Exec(ctx, `UPDATE operation SET end_time = now() WHERE id_operation = $1`, operationID); err != nil {
		return xerrors.Errorf("finish operation: %w", err)
	}
	return nil
}

// PostgresAnomalyRepository аномалии в production_anomaly и справочник class_defect
type PostgresAnomalyRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAnomalyRepository создаёт хранилище
func NewPostgresAnomalyRepository(pool *pgxpool.Pool) *PostgresAnomalyRepository {
	return &PostgresAnomalyRepository{pool: pool}
}

// ImagesBetween возвращает уникальные пути снимков за интервал [from, to)
func (r *PostgresAnomalyRepository) ImagesBetween(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT image_path FROM production_anomaly
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY image_path
		ORDER BY MIN(created_at), image_path`, from, to)
	if err != nil {
		return nil, xerrors.Errorf("select images: %w", err)
	}

	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, xerrors.Errorf("scan images: %w", err)
	}
	return paths, nil
}

// ByImage возвращает области снимка с именами классов
func (r *PostgresAnomalyRepository) ByImage(ctx context.Context, imagePath string) ([]entity.Anomaly, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pa.id, pa.image_path, pa.class_id, cd.defect_name, pa.x0, pa.y0, pa.x1, pa.y1, pa.created_at
		FROM production_anomaly pa
		JOIN class_defect cd ON cd.class_id = pa.class_id
		WHERE pa.image_path = $1
		ORDER BY pa.id`, imagePath)
	if err != nil {
		return nil, xerrors.Errorf("select anomalies: %w", err)
	}

	anomalies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Anomaly, error) {
		var a entity.Anomaly
		err := row.Scan(&a.ID, &a.ImagePath, &a.ClassID, &a.DefectName,
			&a.Box.X0, &a.Box.Y0, &a.Box.X1, &a.Box.Y1, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, xerrors.Errorf("scan anomalies: %w", err)
	}
	return anomalies, nil
}

// Record сохраняет аномалии одной транзакцией
func (r *PostgresAnomalyRepository) Record(ctx context.Context, anomalies []entity.Anomaly) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, a := range anomalies {
			created := a.CreatedAt
			if created.IsZero() {
				created = time.Now()
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO production_anomaly (image_path, class_id, x0, y0, x1, y1, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ImagePath, a.ClassID, a.Box.X0, a.Box.Y0, a.Box.X1, a.Box.Y1, created); err != nil {
				return xerrors.Errorf("insert anomaly: %w", err)
			}
		}
		return nil
	})
}

// UpdateClass меняет класс аномалии
func (r *PostgresAnomalyRepository) UpdateClass(ctx context.Context, anomalyID, classID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE production_anomaly SET class_id = $1 WHERE id = $2`, classID, anomalyID)
	if err != nil {
		return xerrors.Errorf("update anomaly class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAnomalyNotFound
	}
	return nil
}

// Classes возвращает справочник классов
func (r *PostgresAnomalyRepository) Classes(ctx context.Context) ([]entity.DefectClass, error) {
	rows, err := r.pool.Query(ctx, `SELECT class_id, defect_name FROM class_defect ORDER BY class_id`)
	if err != nil {
		return nil, xerrors.Errorf("select classes: %w", err)
	}

	classes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.DefectClass, error) {
		var c entity.DefectClass
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, xerrors.Errorf("scan classes: %w", err)
	}
	return classes, nil
}

// ClassByName ищет класс по имени
func (r *PostgresAnomalyRepository) ClassByName(ctx context.Context, name string) (entity.DefectClass, bool, error) {
	var c entity.DefectClass
	err := r.pool.QueryRow(ctx,
		`SELECT class_id, defect_name FROM class_defect WHERE defect_name = $1`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.DefectClass{}, false, nil
	}
	if err != nil {
		return entity.DefectClass{}, false, xerrors.Errorf("select class: %w", err)
	}
	return c, true, nil
}

var (
	_ port.UserRepository      = (*PostgresUserRepository)(nil)
	_ port.OperationRepository = (*PostgresOperationRepository)(nil)
	_ port.AnomalyRepository   = (*PostgresAnomalyRepository)(nil)
)
