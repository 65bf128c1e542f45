// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic     SecurityLevel = iota // No authentication
	SecurityAccess                          // Operator access token required
	SecuritySupervisor                      // Access token with the supervisor role
)

// Route names are the names given to gorilla/mux routes; gRPC entries are full method names.
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"healthz": SecurityPublic,

	// gRPC ops - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      SecurityPublic,
	"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": SecurityPublic,

	// Check sessions - Access Protected
	"sessions.start":           SecurityAccess,
	"sessions.get":             SecurityAccess,
	"sessions.plate":           SecurityAccess,
	"sessions.damage_scan":     SecurityAccess,
	"sessions.dashboard":       SecurityAccess,
	"sessions.readings":        SecurityAccess,
	"sessions.cleanliness":     SecurityAccess,
	"sessions.confirm":         SecurityAccess,
	"sessions.manual_readings": SecurityAccess,
	"sessions.accept":          SecurityAccess,
	"sessions.restart":         SecurityAccess,
	"sessions.close":           SecurityAccess,

	// Settlements - Access Protected
	"settlements.preview": SecurityAccess,
	"settlements.get":     SecurityAccess,

	// Captured images - Access Protected
	"images.get": SecurityAccess,

	// Review queue - Supervisor only
	"reviews.list": SecuritySupervisor,
	"reviews.mark": SecuritySupervisor,
}

// GetSecurityLevel returns the security level for a route name or gRPC method
func GetSecurityLevel(name string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[name]; exists {
		return level
	}
	// Default to access token for unknown endpoints
	return SecurityAccess
}
