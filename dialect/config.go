package dialect

import (
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/recordstore"
)

// Config is one named connection entry of the process-wide connection list.
type Config struct {
	Role                     string            `koanf:"role" yaml:"role"`
	Dialect                  string            `koanf:"dialect" yaml:"dialect"`
	Server                   string            `koanf:"server" yaml:"server"`
	Port                     int               `koanf:"port" yaml:"port,omitempty"`
	Database                 string            `koanf:"database" yaml:"database"`
	Username                 string            `koanf:"username" yaml:"username,omitempty"`
	Password                 string            `koanf:"password" yaml:"password,omitempty"`
	Encrypt                  bool              `koanf:"encrypt" yaml:"encrypt,omitempty"`
	TrustServerCertificate   bool              `koanf:"trust_server_certificate" yaml:"trust_server_certificate,omitempty"`
	MultipleActiveResultSets bool              `koanf:"multiple_active_result_sets" yaml:"multiple_active_result_sets,omitempty"`
	SSLMode                  string            `koanf:"ssl_mode" yaml:"ssl_mode,omitempty"`
	Options                  map[string]string `koanf:"options" yaml:"options,omitempty"`
}

// Redacted returns a copy of the entry with the password masked.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "******"
	}
	return c
}

// Validate checks the entry and returns its dialect. Server is required
// except for SQLite, database is required for every dialect but SQL Server,
// which falls back to the login's default database.
func (c Config) Validate() (*Dialect, error) {
	d, err := Get(c.Dialect)
	if err != nil {
		return nil, err
	}
	if d.Name != SQLite && strings.TrimSpace(c.Server) == "" {
		return nil, recordstore.NewConfigurationError("server", c.Role, "required")
	}
	if d.Name != SQLServer && strings.TrimSpace(c.Database) == "" {
		return nil, recordstore.NewConfigurationError("database", c.Role, "required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return nil, recordstore.NewConfigurationError("port", strconv.Itoa(c.Port), "out of range")
	}
	return d, nil
}

// BuildConnectionString renders the ADO.NET-style connection string for the
// entry. It performs no I/O.
func BuildConnectionString(c Config) (string, error) {
	d, err := c.Validate()
	if err != nil {
		return "", err
	}
	var b connBuilder
	switch d.Name {
	case SQLServer:
		server := c.Server
		if c.Port != 0 {
			server += "," + strconv.Itoa(c.Port)
		}
		b.add("Server", server)
		b.add("Database", c.Database)
		b.credentials("User ID", c.Username, c.Password)
		b.flag("Encrypt", c.Encrypt)
		b.flag("TrustServerCertificate", c.TrustServerCertificate)
		b.flag("MultipleActiveResultSets", c.MultipleActiveResultSets)
	case Postgres:
		b.add("Host", c.Server)
		if c.Port != 0 {
			b.add("Port", strconv.Itoa(c.Port))
		}
		b.add("Database", c.Database)
		b.credentials("Username", c.Username, c.Password)
		switch {
		case c.SSLMode != "":
			b.add("SSL Mode", c.SSLMode)
		case c.Encrypt:
			b.add("SSL Mode", "Require")
		}
		b.flag("Trust Server Certificate", c.TrustServerCertificate)
	case MySQL:
		b.add("Server", c.Server)
		if c.Port != 0 {
			b.add("Port", strconv.Itoa(c.Port))
		}
		b.add("Database", c.Database)
		b.add("User ID", c.Username)
		b.add("Password", c.Password)
		if c.Encrypt {
			b.add("SslMode", "Required")
		}
	case SQLite:
		b.add("Data Source", c.Database)
	}
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.add(k, c.Options[k])
	}
	return b.String(), nil
}

type connBuilder struct{ strings.Builder }

func (b *connBuilder) add(key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(adoValue(value))
	b.WriteByte(';')
}

func (b *connBuilder) flag(key string, on bool) {
	if on {
		b.add(key, "True")
	}
}

// credentials writes the user and password pair, or integrated security
// when no user is configured.
func (b *connBuilder) credentials(userKey, user, password string) {
	if user == "" {
		b.add("Integrated Security", "True")
		return
	}
	b.add(userKey, user)
	b.WriteString("Password=")
	b.WriteString(adoValue(password))
	b.WriteByte(';')
}

// adoValue quotes values that would otherwise break the key=value; grammar.
func adoValue(v string) string {
	if !strings.ContainsAny(v, `;"'`) && strings.TrimSpace(v) == v {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// DriverDSN renders the data source name understood by the registered
// database/sql driver of the entry's dialect.
func DriverDSN(c Config) (string, error) {
	d, err := c.Validate()
	if err != nil {
		return "", err
	}
	port := c.Port
	if port == 0 {
		port = d.DefaultPort
	}
	switch d.Name {
	case SQLServer:
		return sqlServerDSN(c, port), nil
	case Postgres:
		return postgresDSN(c, port), nil
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.Username
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Server, strconv.Itoa(port))
		cfg.DBName = c.Database
		cfg.ParseTime = true
		// RowsAffected counts matched rows, not changed ones.
		cfg.ClientFoundRows = true
		switch {
		case c.Encrypt && c.TrustServerCertificate:
			cfg.TLSConfig = "skip-verify"
		case c.Encrypt:
			cfg.TLSConfig = "true"
		}
		if len(c.Options) > 0 {
			cfg.Params = make(map[string]string, len(c.Options))
			for k, v := range c.Options {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN(), nil
	default:
		path := c.Database
		if path == ":memory:" {
			return "file::memory:?_pragma=foreign_keys(1)", nil
		}
		return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	}
}

// sqlServerDSN renders the URL form accepted by go-mssqldb. A named
// instance ("host\instance") becomes the URL path.
func sqlServerDSN(c Config, port int) string {
	host, instance, _ := strings.Cut(c.Server, `\`)
	u := &url.URL{Scheme: "sqlserver"}
	if instance != "" {
		u.Host = host
		u.Path = instance
	} else {
		u.Host = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.Encrypt {
		q.Set("encrypt", "true")
		q.Set("TrustServerCertificate", strconv.FormatBool(c.TrustServerCertificate))
	} else {
		q.Set("encrypt", "disable")
	}
	for k, v := range c.Options {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func postgresDSN(c Config, port int) string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
		if c.Encrypt {
			sslmode = "require"
		}
	}
	parts := []string{
		"host=" + pqValue(c.Server),
		"port=" + strconv.Itoa(port),
		"dbname=" + pqValue(c.Database),
		"sslmode=" + pqValue(sslmode),
	}
	if c.Username != "" {
		parts = append(parts, "user="+pqValue(c.Username))
	}
	if c.Password != "" {
		parts = append(parts, "password="+pqValue(c.Password))
	}
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+pqValue(c.Options[k]))
	}
	return strings.Join(parts, " ")
}

// pqValue single-quotes values lib/pq would otherwise split on.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
