/*
Package compose parses a docker-compose file and its accompanying .env
into the subset the deployment orchestrator needs: port mappings and
relative bind-mount volume sources, both after environment-reference
expansion (spec §4.6.5). Parsing uses gopkg.in/yaml.v3, the same
library the teacher's own cmd/warren/apply.go reaches for.
*/
package compose
