package ddl

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/lexer"
	"github.com/Limetric/mysqlcat/internal/parser"
)

// ErrUnsupportedStatement is returned by ParseStatementDetails for statement
// kinds it has no details for.
var ErrUnsupportedStatement = errors.New("unsupported statement")

// UserDefinition is one account of a GRANT or CREATE USER statement.
type UserDefinition struct {
	User string
	Host string
	// IDMethod is PASSWORD for IDENTIFIED BY, else the plugin named by
	// IDENTIFIED WITH.
	IDMethod string
	IDString string
}

// StatementDetails describes an account management statement.
type StatementDetails struct {
	Kind       parser.StatementKind
	Privileges []string
	// Target is the text between ON and TO, e.g. "db.*".
	Target string
	Users  []UserDefinition
	// Requirements holds SSL, X509 or NONE with an empty value, or the
	// CIPHER, ISSUER and SUBJECT values given.
	Requirements map[string]string
	// Options holds GRANT (for WITH GRANT OPTION) and resource limits.
	Options map[string]string
}

// ParseStatementDetails extracts the details of a GRANT or CREATE USER
// statement.
func ParseStatementDetails(pc *Context, sql string) (StatementDetails, error) {
	c, errs := parser.Recognize(sql, parser.UnitStatement)
	if len(errs) > 0 {
		return StatementDetails{}, errors.Wrap(errs[0], "statement details")
	}
	kind, err := parser.Classify(sql)
	if err != nil {
		return StatementDetails{}, errors.Wrap(err, "statement details")
	}

	d := StatementDetails{Kind: kind}
	switch kind {
	case parser.KindGrant:
		err = c.Run(func() { grantDetails(c, &d) })
	case parser.KindCreateUser:
		err = c.Run(func() { createUserDetails(c, &d) })
	default:
		return StatementDetails{}, errors.Wrapf(ErrUnsupportedStatement, "%s", kind)
	}
	if err != nil {
		pc.logger().Debugw("statement details failed", "kind", kind.String(), "error", err)
		return StatementDetails{}, errors.Wrap(err, "statement details")
	}
	return d, nil
}

func grantDetails(c *parser.Cursor, d *StatementDetails) {
	c.Expect("GRANT")
	for !c.AtEnd() && !c.Is("ON") && !c.Is("TO") {
		d.Privileges = append(d.Privileges, privilege(c))
		if !c.SkipKind(lexer.Comma) {
			break
		}
	}
	if c.SkipIf("ON", 0) {
		d.Target = strings.TrimSpace(textUntil(c, "TO"))
	}
	c.Expect("TO")
	d.Users = userList(c)
	accountOptions(c, d)
}

func createUserDetails(c *parser.Cursor, d *StatementDetails) {
	c.Expect("CREATE")
	c.Expect("USER")
	if c.Is("IF") {
		c.Expect("IF")
		c.Expect("NOT")
		c.Expect("EXISTS")
	}
	d.Users = userList(c)
	accountOptions(c, d)
}

// privilege reads one privilege with its optional column list, as in
// "SELECT (a, b)" or "ALL PRIVILEGES".
func privilege(c *parser.Cursor) string {
	if c.IsKind(lexer.LParen) || c.IsKind(lexer.Comma) {
		c.Failf("expected privilege but found %q", c.Text())
	}
	priv := c.Text()
	c.Advance()
	if c.IsKind(lexer.LParen) {
		c.Advance()
		var cols []string
		for {
			cols = append(cols, c.Text())
			c.Advance()
			if !c.SkipKind(lexer.Comma) {
				break
			}
		}
		c.ExpectKind(lexer.RParen)
		return priv + " (" + strings.Join(cols, ", ") + ")"
	}
	for c.IsKind(lexer.Word) && !c.IsAny("ON", "TO") {
		priv += " " + c.Text()
		c.Advance()
	}
	return priv
}

func userList(c *parser.Cursor) []UserDefinition {
	var users []UserDefinition
	for {
		users = append(users, userDefinition(c))
		if !c.SkipKind(lexer.Comma) {
			return users
		}
	}
}

// userDefinition reads user[@host] [IDENTIFIED BY [PASSWORD] 'secret' |
// IDENTIFIED WITH plugin [AS|BY 'string']]. Values are unquoted.
func userDefinition(c *parser.Cursor) UserDefinition {
	if !c.Token().IsIdentifier() {
		c.Failf("expected user name but found %q", c.Text())
	}
	u := UserDefinition{User: c.Unquoted()}
	c.Advance()
	if strings.EqualFold(u.User, "CURRENT_USER") && c.IsKind(lexer.LParen) && c.Peek(1).Kind == lexer.RParen {
		c.Next(2)
	}
	if c.SkipKind(lexer.At) {
		if c.AtEnd() {
			c.Failf("missing host name")
		}
		u.Host = c.Unquoted()
		c.Advance()
	}
	if !c.SkipIf("IDENTIFIED", 0) {
		return u
	}
	if c.SkipIf("BY", 0) {
		c.SkipIf("PASSWORD", 0)
		u.IDMethod = "PASSWORD"
		u.IDString = c.Unquoted()
		c.Advance()
		return u
	}
	c.Expect("WITH")
	u.IDMethod = c.Unquoted()
	c.Advance()
	if c.SkipIf("AS", 0) || c.SkipIf("BY", 0) {
		u.IDString = c.Unquoted()
		c.Advance()
	}
	return u
}

var resourceLimits = []string{
	"MAX_QUERIES_PER_HOUR", "MAX_UPDATES_PER_HOUR", "MAX_CONNECTIONS_PER_HOUR", "MAX_USER_CONNECTIONS",
}

// accountOptions reads the REQUIRE and WITH clauses after the user list.
func accountOptions(c *parser.Cursor, d *StatementDetails) {
	if c.SkipIf("REQUIRE", 0) {
		d.Requirements = map[string]string{}
		if c.IsAny("SSL", "X509", "NONE") {
			d.Requirements[c.Token().Upper()] = ""
			c.Advance()
		} else {
			for c.IsAny("CIPHER", "ISSUER", "SUBJECT") {
				option := c.Token().Upper()
				c.Advance()
				d.Requirements[option] = c.Unquoted()
				c.Advance()
				c.SkipIf("AND", 0)
			}
		}
	}

	if !c.SkipIf("WITH", 0) {
		return
	}
	d.Options = map[string]string{}
	for {
		switch {
		case c.Is("GRANT"):
			d.Options["GRANT"] = ""
			c.Advance()
			c.Expect("OPTION")
		case c.IsAny(resourceLimits...):
			option := c.Token().Upper()
			c.Advance()
			d.Options[option] = c.Text()
			c.Advance()
		default:
			return
		}
	}
}
