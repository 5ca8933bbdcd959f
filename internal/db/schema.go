package db

// Timestamps are stored as unix milliseconds so both dialects share queries.

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS courses (
  course_id  TEXT PRIMARY KEY,
  owner_id   TEXT NOT NULL,
  title      TEXT NOT NULL,
  price      NUMERIC(12,2) NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS chapters (
  chapter_id   TEXT PRIMARY KEY,
  course_id    TEXT NOT NULL REFERENCES courses(course_id) ON DELETE CASCADE,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  media_ref    TEXT NOT NULL DEFAULT '',
  position     INTEGER NOT NULL,
  is_free      BOOLEAN NOT NULL DEFAULT FALSE,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  created_at   BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS chapters_course_position_idx ON chapters (course_id, position);`,
	`CREATE TABLE IF NOT EXISTS quizzes (
  quiz_id       TEXT PRIMARY KEY,
  course_id     TEXT REFERENCES courses(course_id) ON DELETE CASCADE,
  title         TEXT NOT NULL,
  position      INTEGER NOT NULL DEFAULT 0,
  timer_minutes INTEGER,
  max_attempts  INTEGER NOT NULL DEFAULT 1 CHECK (max_attempts >= 1),
  is_published  BOOLEAN NOT NULL DEFAULT FALSE,
  created_at    BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS quizzes_course_position_idx ON quizzes (course_id, position);`,
	`CREATE TABLE IF NOT EXISTS questions (
  question_id    TEXT PRIMARY KEY,
  quiz_id        TEXT NOT NULL REFERENCES quizzes(quiz_id) ON DELETE CASCADE,
  position       INTEGER NOT NULL,
  type           TEXT NOT NULL,
  text           TEXT NOT NULL,
  options_json   TEXT NOT NULL DEFAULT '[]',
  correct_answer TEXT,
  points         NUMERIC(8,2) NOT NULL CHECK (points > 0)
);`,
	`CREATE TABLE IF NOT EXISTS purchases (
  user_id   TEXT NOT NULL,
  course_id TEXT NOT NULL,
  PRIMARY KEY (user_id, course_id)
);`,
	`CREATE TABLE IF NOT EXISTS user_progress (
  user_id      TEXT NOT NULL,
  chapter_id   TEXT NOT NULL,
  course_id    TEXT NOT NULL,
  completed_at BIGINT NOT NULL,
  PRIMARY KEY (user_id, chapter_id)
);`,
	`CREATE TABLE IF NOT EXISTS quiz_submissions (
  submission_id  TEXT PRIMARY KEY,
  quiz_id        TEXT NOT NULL,
  user_id        TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  submitted_at   BIGINT NOT NULL,
  answers_json   TEXT NOT NULL,
  UNIQUE (quiz_id, user_id, attempt_number)
);`,
}

var schemaSQLite = []string{
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS courses (
  course_id  TEXT PRIMARY KEY,
  owner_id   TEXT NOT NULL,
  title      TEXT NOT NULL,
  price      TEXT NOT NULL DEFAULT '0',
  created_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS chapters (
  chapter_id   TEXT PRIMARY KEY,
  course_id    TEXT NOT NULL REFERENCES courses(course_id) ON DELETE CASCADE,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  media_ref    TEXT NOT NULL DEFAULT '',
  position     INTEGER NOT NULL,
  is_free      BOOLEAN NOT NULL DEFAULT 0,
  is_published BOOLEAN NOT NULL DEFAULT 0,
  created_at   INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS chapters_course_position_idx ON chapters (course_id, position);`,
	`CREATE TABLE IF NOT EXISTS quizzes (
  quiz_id       TEXT PRIMARY KEY,
  course_id     TEXT REFERENCES courses(course_id) ON DELETE CASCADE,
  title         TEXT NOT NULL,
  position      INTEGER NOT NULL DEFAULT 0,
  timer_minutes INTEGER,
  max_attempts  INTEGER NOT NULL DEFAULT 1 CHECK (max_attempts >= 1),
  is_published  BOOLEAN NOT NULL DEFAULT 0,
  created_at    INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS quizzes_course_position_idx ON quizzes (course_id, position);`,
	`CREATE TABLE IF NOT EXISTS questions (
  question_id    TEXT PRIMARY KEY,
  quiz_id        TEXT NOT NULL REFERENCES quizzes(quiz_id) ON DELETE CASCADE,
  position       INTEGER NOT NULL,
  type           TEXT NOT NULL,
  text           TEXT NOT NULL,
  options_json   TEXT NOT NULL DEFAULT '[]',
  correct_answer TEXT,
  points         TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS purchases (
  user_id   TEXT NOT NULL,
  course_id TEXT NOT NULL,
  PRIMARY KEY (user_id, course_id)
);`,
	`CREATE TABLE IF NOT EXISTS user_progress (
  user_id      TEXT NOT NULL,
  chapter_id   TEXT NOT NULL,
  course_id    TEXT NOT NULL,
  completed_at INTEGER NOT NULL,
  PRIMARY KEY (user_id, chapter_id)
);`,
	`CREATE TABLE IF NOT EXISTS quiz_submissions (
  submission_id  TEXT PRIMARY KEY,
  quiz_id        TEXT NOT NULL,
  user_id        TEXT NOT NULL,
  attempt_number INTEGER NOT NULL,
  submitted_at   INTEGER NOT NULL,
  answers_json   TEXT NOT NULL,
  UNIQUE (quiz_id, user_id, attempt_number)
);`,
}
