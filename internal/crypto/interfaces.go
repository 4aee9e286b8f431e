package crypto

// BlobSealer отвечает за шифрование блобов перед отправкой в удалённое
// хранилище. Он не знает ничего о сети, базе данных или формате блобов.
// Его единственная задача — выводить ключи и запечатывать байты.
//
// Схема работы:
//
//	Key    = DeriveKey(passphrase, salt)   (Шаг 1, один раз на процесс)
//	Sealed = Seal(plaintext, Key)          (Шаг 2, на каждый блоб)
//	Plain  = Open(sealed, Key)             (Шаг 3, обратная операция)
type BlobSealer interface {
	// DeriveKey выводит 256-битный ключ из парольной фразы и соли через
	// Argon2id. Обе стороны синхронизации обязаны использовать одну и ту
	// же фразу, иначе Open вернёт ошибку аутентификации.
	// Шаг 1.
	DeriveKey(passphrase string, salt []byte) []byte

	// Seal шифрует блоб ключом через AES-256-GCM.
	// Результат (Nonce + Ciphertext) безопасно хранить на сервере —
	// без ключа это просто случайный шум.
	// Шаг 2.
	Seal(plaintext, key []byte) ([]byte, error)

	// Open расшифровывает блоб, созданный Seal.
	// Возвращает исходные байты или ошибку, если ключ неверен либо
	// блоб повреждён (не сошёлся тег аутентификации).
	// Шаг 3.
	Open(sealed, key []byte) ([]byte, error)
}
