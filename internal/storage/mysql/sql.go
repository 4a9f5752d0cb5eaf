package mysql

// Appended to single-row reads inside a transaction.
const lockClause = " FOR UPDATE"

// -----------------------------------------------------------------------------
// USERS
// -----------------------------------------------------------------------------

const userColumns = "id, login_name, email_address, first_name, last_name, created_at, updated_at"

const getUserSQL = "SELECT " + userColumns + " FROM users WHERE id = ?"

const listUsersSQL = "SELECT " + userColumns + " FROM users ORDER BY id"

const insertUserSQL = `
INSERT INTO users (login_name, email_address, first_name, last_name)
VALUES (?, ?, ?, ?)
`

const updateUserSQL = `
UPDATE users SET
  login_name    = ?,
  email_address = ?,
  first_name    = ?,
  last_name     = ?,
  updated_at    = CURRENT_TIMESTAMP(6)
WHERE id = ?
`

const deleteUserSQL = "DELETE FROM users WHERE id = ?"

// -----------------------------------------------------------------------------
// POS
// -----------------------------------------------------------------------------

const posColumns = "id, name, description, type, campus, street, house_number, postal_code, city, created_at, updated_at"

const getPosSQL = "SELECT " + posColumns + " FROM pos WHERE id = ?"

const listPosSQL = "SELECT " + posColumns + " FROM pos ORDER BY id"

const insertPosSQL = `
INSERT INTO pos (name, description, type, campus, street, house_number, postal_code, city)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const updatePosSQL = `
UPDATE pos SET
  name         = ?,
  description  = ?,
  type         = ?,
  campus       = ?,
  street       = ?,
  house_number = ?,
  postal_code  = ?,
  city         = ?,
  updated_at   = CURRENT_TIMESTAMP(6)
WHERE id = ?
`

const deletePosSQL = "DELETE FROM pos WHERE id = ?"

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

// Note: `text` is reserved; keep it quoted everywhere.
const reviewColumns = "id, pos_id, author_id, `text`, approval_count, approved, created_at, updated_at"

const getReviewSQL = "SELECT " + reviewColumns + " FROM reviews WHERE id = ?"

const listReviewsSQL = "SELECT " + reviewColumns + " FROM reviews ORDER BY id"

const insertReviewSQL = "INSERT INTO reviews (pos_id, author_id, `text`, approval_count, approved)\nVALUES (?, ?, ?, ?, ?)"

const updateReviewSQL = "UPDATE reviews SET\n" +
	"  pos_id         = ?,\n" +
	"  author_id      = ?,\n" +
	"  `text`         = ?,\n" +
	"  approval_count = ?,\n" +
	"  approved       = ?,\n" +
	"  updated_at     = CURRENT_TIMESTAMP(6)\n" +
	"WHERE id = ?"

const deleteReviewSQL = "DELETE FROM reviews WHERE id = ?"

// Served by uq_reviews_pos_author.
const filterByPosAndAuthorSQL = "SELECT " + reviewColumns + " FROM reviews WHERE pos_id = ? AND author_id = ? ORDER BY id"

// Served by idx_reviews_pos_approved.
const filterByPosAndApprovalSQL = "SELECT " + reviewColumns + " FROM reviews WHERE pos_id = ? AND approved = ? ORDER BY id"
