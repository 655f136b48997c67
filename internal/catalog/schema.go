package catalog

// Timestamps are stored as unix nanoseconds.

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	filepath TEXT NOT NULL DEFAULT '',
	uploader TEXT NOT NULL DEFAULT '',
	cover_path TEXT NOT NULL DEFAULT '',
	origin TEXT NOT NULL DEFAULT 'uploaded',
	upload_date INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_books_upload_date ON books(upload_date);
CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
`

const reviewsSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL DEFAULT 'uploaded',
	book_id TEXT NOT NULL,
	username TEXT NOT NULL,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	review_text TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

const downloadsSchema = `
CREATE TABLE IF NOT EXISTS downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id INTEGER NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	download_date INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_downloads_book ON downloads(book_id);
`

const activitySchema = `
CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action TEXT NOT NULL,
	target_type TEXT NOT NULL DEFAULT '',
	target_id TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_activity_action ON activity_log(action);
`

var allSchemas = []string{booksSchema, reviewsSchema, downloadsSchema, activitySchema}

// addedColumns are columns introduced after their table was first
// released. Open adds them to older databases.
var addedColumns = []struct{ table, column, decl string }{
	{"reviews", "source", "TEXT NOT NULL DEFAULT 'uploaded'"},
}

// indexSchema runs after addedColumns so it may index them.
const indexSchema = `
DROP INDEX IF EXISTS idx_reviews_book;
CREATE INDEX IF NOT EXISTS idx_reviews_record ON reviews(source, book_id, created_at);
`
