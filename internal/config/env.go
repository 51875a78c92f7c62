package config

import "strings"

// envReplacer maps nested keys such as http.port to WHEELDEALS_HTTP_PORT.
var envReplacer = strings.NewReplacer(".", "_")
