package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Pages: one record per (document, page), replaced wholesale on save
CREATE TABLE IF NOT EXISTS pages (
    page_id INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id TEXT NOT NULL,
    page_no INTEGER NOT NULL,
    source_path TEXT,

    -- Box list in the wire format, reading order = array order
    boxes TEXT NOT NULL DEFAULT '[]',
    -- Groups as a JSON array of index arrays into boxes
    groups_json TEXT NOT NULL DEFAULT '[]',
    box_count INTEGER DEFAULT 0,

    validated BOOLEAN DEFAULT 0,
    validated_at TEXT,           -- RFC 3339, set when validated

    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(doc_id, page_no)
);

CREATE INDEX IF NOT EXISTS idx_pages_doc ON pages(doc_id);
CREATE INDEX IF NOT EXISTS idx_pages_validated ON pages(validated) WHERE validated = 1;

-- Page saves: every successful save tracked
CREATE TABLE IF NOT EXISTS page_saves (
    save_id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    box_count INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (page_id) REFERENCES pages(page_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_page_saves_page ON page_saves(page_id);
CREATE INDEX IF NOT EXISTS idx_page_saves_time ON page_saves(saved_at);
`
