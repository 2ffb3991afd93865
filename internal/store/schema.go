package store

const schema = `
CREATE TABLE IF NOT EXISTS degrees (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	kind          TEXT NOT NULL DEFAULT '',
	link          TEXT NOT NULL,
	department_id TEXT NOT NULL DEFAULT '',
	fetched_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
	code  TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	units INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS requirement_sections (
	degree_id     TEXT NOT NULL REFERENCES degrees(id) ON DELETE CASCADE,
	scope         TEXT NOT NULL,
	position      INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	kind_detail   TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL,
	PRIMARY KEY (degree_id, scope, position)
);

CREATE TABLE IF NOT EXISTS requirement_nodes (
	degree_id        TEXT NOT NULL REFERENCES degrees(id) ON DELETE CASCADE,
	scope            TEXT NOT NULL,
	section_position INTEGER NOT NULL,
	node_id          INTEGER NOT NULL,
	parent_id        INTEGER,
	position         INTEGER NOT NULL,
	kind             TEXT NOT NULL,
	course_code      TEXT,
	units            INTEGER NOT NULL,
	PRIMARY KEY (degree_id, scope, section_position, node_id)
);

CREATE TABLE IF NOT EXISTS ge_requirements (
	degree_id TEXT NOT NULL REFERENCES degrees(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	area      TEXT NOT NULL,
	subarea   TEXT NOT NULL DEFAULT '',
	units     INTEGER NOT NULL,
	label     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (degree_id, position)
);

CREATE TABLE IF NOT EXISTS subjects (
	code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS course_descriptions (
	code        TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	number      INTEGER NOT NULL,
	title       TEXT NOT NULL,
	min_units   INTEGER NOT NULL,
	max_units   INTEGER NOT NULL,
	terms       TEXT[] NOT NULL DEFAULT '{}',
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS diagnostics (
	degree_id TEXT NOT NULL REFERENCES degrees(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	source    TEXT NOT NULL DEFAULT '',
	row_index INTEGER NOT NULL,
	row_text  TEXT NOT NULL,
	reason    TEXT NOT NULL,
	category  TEXT NOT NULL,
	PRIMARY KEY (degree_id, position)
);
`

const upsertDegree = `INSERT INTO degrees (id, name, kind, link, department_id, fetched_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, kind=EXCLUDED.kind, link=EXCLUDED.link, department_id=EXCLUDED.department_id, fetched_at=EXCLUDED.fetched_at`

const deleteSections = `DELETE FROM requirement_sections WHERE degree_id = $1`
const deleteNodes = `DELETE FROM requirement_nodes WHERE degree_id = $1`
const deleteGE = `DELETE FROM ge_requirements WHERE degree_id = $1`
const deleteDiagnostics = `DELETE FROM diagnostics WHERE degree_id = $1`

const upsertCourse = `INSERT INTO courses (code, title, units) VALUES ($1, $2, $3) ON CONFLICT (code) DO UPDATE SET title=CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE courses.title END, units=GREATEST(courses.units, EXCLUDED.units)`
const insertSection = `INSERT INTO requirement_sections (degree_id, scope, position, kind, kind_detail, title) VALUES ($1, $2, $3, $4, $5, $6)`
const insertNode = `INSERT INTO requirement_nodes (degree_id, scope, section_position, node_id, parent_id, position, kind, course_code, units) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
const insertGE = `INSERT INTO ge_requirements (degree_id, position, area, subarea, units, label) VALUES ($1, $2, $3, $4, $5, $6)`
const insertDiagnostic = `INSERT INTO diagnostics (degree_id, position, source, row_index, row_text, reason, category) VALUES ($1, $2, $3, $4, $5, $6, $7)`

const upsertSubject = `INSERT INTO subjects (code, name, link) VALUES ($1, $2, $3) ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, link=EXCLUDED.link`
const upsertCourseDescription = `INSERT INTO course_descriptions (code, subject, number, title, min_units, max_units, terms, description) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (code) DO UPDATE SET subject=EXCLUDED.subject, number=EXCLUDED.number, title=EXCLUDED.title, min_units=EXCLUDED.min_units, max_units=EXCLUDED.max_units, terms=EXCLUDED.terms, description=EXCLUDED.description`

const listCourseDescriptions = `SELECT code, subject, number, title, min_units, max_units, terms, description FROM course_descriptions WHERE subject = $1 ORDER BY number, code`

const listDegrees = `SELECT id, name, kind, link, department_id FROM degrees ORDER BY name, kind`
