package patterns

// Class and method tables use JVM internal names (slash separated).
// Ordered keyword tables list their terms in precedence order.

// Network and HTTP.
var (
	WebConnectionClasses = NewSet(
		"java/net/URLConnection",
		"java/net/HttpURLConnection",
		"javax/net/ssl/HttpsURLConnection",
		"java/net/URL",
		"org/apache/http/client/HttpClient",
		"org/apache/http/impl/client/HttpClients",
		"okhttp3/OkHttpClient",
		"java/net/http/HttpClient",
		"java/net/http/HttpRequest",
		"java/net/http/HttpResponse",
	)

	DangerousNetworkMethods = NewSet(
		"connect",
		"openConnection",
		"getInputStream",
		"getOutputStream",
		"setRequestMethod",
		"setRequestProperty",
		"addRequestProperty",
		"send",
		"sendAsync",
		"execute",
	)

	MutatingHTTPMethods = []string{"POST", "PUT", "PATCH", "DELETE"}

	SuspiciousHeaders = []string{
		"user-agent",
		"authorization",
		"x-forwarded-for",
		"x-real-ip",
		"cookie",
		"set-cookie",
		"x-requested-with",
	}

	HighRiskHeaders = NewSet("authorization", "cookie", "set-cookie")

	BrowserAgents = NewKeywordSet("mozilla", "chrome", "firefox", "safari")

	ContentTypePrefixes = []string{"application/", "text/", "multipart/"}

	ThirdPartyHTTPPackages = NewKeywordSet("apache/http", "okhttp", "retrofit")

	TLSBypassOwners = NewKeywordSet("TrustManager", "HostnameVerifier")

	TLSBypassMethods = NewSet("setHostnameVerifier", "setSSLSocketFactory")
)

// Cryptography.
var (
	CryptoClasses = NewSet(
		"javax/crypto/Cipher",
		"javax/crypto/KeyGenerator",
		"javax/crypto/SecretKey",
		"javax/crypto/spec/SecretKeySpec",
		"javax/crypto/spec/IvParameterSpec",
		"java/security/MessageDigest",
		"java/security/SecureRandom",
		"javax/crypto/Mac",
	)

	Base64Classes = NewSet(
		"java/util/Base64$Encoder",
		"java/util/Base64$Decoder",
		"java/util/Base64",
	)

	SecureRandomClass = "java/security/SecureRandom"

	// Upper-case tokens; 3DES precedes DES so the longer name wins.
	CipherAlgorithms = NewKeywordSet("3DES", "AES", "DES", "RSA", "BLOWFISH", "TWOFISH")

	StrongCipherAlgorithms = NewSet("AES", "RSA", "BLOWFISH", "TWOFISH")

	HashAlgorithms = NewKeywordSet("MD5", "SHA-1", "SHA-256", "SHA-512")

	WeakHashAlgorithms = NewSet("MD5", "SHA-1")

	CipherModes = NewKeywordSet("ECB", "CBC", "CTR", "GCM")

	DataTransformMethods = NewSet("doFinal", "update")
)

// Process execution.
var (
	CommandExecutionClasses = NewSet(
		"java/lang/Runtime",
		"java/lang/ProcessBuilder",
		"java/lang/Process",
	)

	ShellCommands = NewKeywordSet(
		"powershell.exe",
		"powershell",
		"cmd.exe",
		"cmd",
		"/bin/bash",
		"/bin/sh",
		"bash",
		"wscript",
		"cscript",
		"sh",
	)

	DangerousCommands = NewKeywordSet(
		"format",
		"del",
		"rm",
		"rmdir",
		"rd",
		"taskkill",
		"net user",
		"reg add",
		"reg delete",
		"schtasks",
		"at ",
		"wmic",
		"vssadmin",
		"bcdedit",
		"cipher",
		"fsutil",
		"netsh",
		"sc create",
		"sc delete",
	)

	ExecutionFlags = NewKeywordSet("-c ", "/c ", "-command", "-exec")

	SystemClass = "java/lang/System"

	SystemInfoMethods = NewSet("getProperty", "getenv")

	StringClass = "java/lang/String"
)

// URL risk ladder keywords.
var (
	CriticalURLKeywords = NewKeywordSet("download", "payload", "exploit", "shell")
	HighURLKeywords     = NewKeywordSet(".exe", ".bat", ".ps1", "admin")
	MediumURLKeywords   = NewKeywordSet("api", "upload", "config")
)
