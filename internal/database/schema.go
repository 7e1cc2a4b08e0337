package database

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,

	`CREATE TABLE IF NOT EXISTS products(
	  id TEXT PRIMARY KEY,
	  seller_id TEXT NOT NULL,
	  name TEXT NOT NULL DEFAULT '',
	  fulfillment_type TEXT NOT NULL CHECK (fulfillment_type IN ('ready_to_ship','made_to_order','scheduled_order')),
	  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	  low_stock_threshold INTEGER,
	  total_capacity INTEGER NOT NULL DEFAULT 0 CHECK (total_capacity >= 0),
	  remaining_capacity INTEGER NOT NULL DEFAULT 0 CHECK (remaining_capacity >= 0 AND remaining_capacity <= total_capacity),
	  capacity_period TEXT,
	  last_restored_at DATETIME,
	  available_quantity INTEGER NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
	  next_available_date DATETIME,
	  is_featured INTEGER NOT NULL DEFAULT 0,
	  is_sponsored INTEGER NOT NULL DEFAULT 0,
	  inventory_version INTEGER NOT NULL DEFAULT 0,
	  created_at DATETIME NOT NULL,
	  updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_fulfillment ON products(fulfillment_type)`,

	`CREATE TABLE IF NOT EXISTS promotional_pricing(
	  feature_type TEXT PRIMARY KEY,
	  display_name TEXT NOT NULL DEFAULT '',
	  base_price TEXT NOT NULL,
	  price_per_day TEXT NOT NULL,
	  included_days INTEGER NOT NULL DEFAULT 0 CHECK (included_days >= 0),
	  benefits TEXT NOT NULL DEFAULT '[]',
	  product_flag TEXT NOT NULL DEFAULT 'none',
	  is_active INTEGER NOT NULL DEFAULT 1,
	  updated_by TEXT,
	  created_at DATETIME NOT NULL,
	  updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS promotional_features(
	  id TEXT PRIMARY KEY,
	  seller_id TEXT NOT NULL,
	  product_id TEXT NOT NULL REFERENCES products(id),
	  feature_type TEXT NOT NULL,
	  duration_days INTEGER NOT NULL CHECK (duration_days > 0),
	  price TEXT NOT NULL,
	  status TEXT NOT NULL,
	  start_date DATETIME,
	  end_date DATETIME,
	  specifications TEXT NOT NULL DEFAULT '{}',
	  rejection_reason TEXT,
	  reviewed_by TEXT,
	  product_flag TEXT NOT NULL DEFAULT '',
	  created_at DATETIME NOT NULL,
	  updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_features_status_end ON promotional_features(status, end_date)`,
	`CREATE INDEX IF NOT EXISTS idx_features_product ON promotional_features(product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_features_seller ON promotional_features(seller_id)`,

	`CREATE TABLE IF NOT EXISTS wallets(
	  seller_id TEXT PRIMARY KEY,
	  balance TEXT NOT NULL DEFAULT '0',
	  version INTEGER NOT NULL DEFAULT 0,
	  created_at DATETIME NOT NULL,
	  updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS wallet_transactions(
	  id TEXT PRIMARY KEY,
	  seller_id TEXT NOT NULL,
	  type TEXT NOT NULL,
	  amount TEXT NOT NULL,
	  balance_after TEXT NOT NULL,
	  reason TEXT NOT NULL DEFAULT '',
	  reference_id TEXT,
	  created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_tx_seller ON wallet_transactions(seller_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS revenue_records(
	  id TEXT PRIMARY KEY,
	  type TEXT NOT NULL,
	  gross_amount TEXT NOT NULL,
	  payment_date DATETIME NOT NULL,
	  status TEXT NOT NULL,
	  feature_id TEXT NOT NULL UNIQUE,
	  seller_id TEXT NOT NULL,
	  created_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS admin_audit_log(
	  id TEXT PRIMARY KEY,
	  admin_user TEXT NOT NULL,
	  action TEXT NOT NULL,
	  target_type TEXT NOT NULL,
	  target_id TEXT NOT NULL,
	  changes TEXT NOT NULL DEFAULT '{}',
	  description TEXT NOT NULL DEFAULT '',
	  ip_address TEXT NOT NULL DEFAULT '',
	  user_agent TEXT NOT NULL DEFAULT '',
	  request_id TEXT NOT NULL DEFAULT '',
	  created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON admin_audit_log(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_admin ON admin_audit_log(admin_user)`,

	`CREATE TABLE IF NOT EXISTS notifications(
	  id TEXT PRIMARY KEY,
	  user_id TEXT NOT NULL,
	  message TEXT NOT NULL,
	  link TEXT,
	  is_read INTEGER NOT NULL DEFAULT 0,
	  created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS products(
	  id VARCHAR(36) PRIMARY KEY,
	  seller_id VARCHAR(36) NOT NULL,
	  name VARCHAR(255) NOT NULL DEFAULT '',
	  fulfillment_type ENUM('ready_to_ship','made_to_order','scheduled_order') NOT NULL,
	  stock INT NOT NULL DEFAULT 0,
	  low_stock_threshold INT NULL,
	  total_capacity INT NOT NULL DEFAULT 0,
	  remaining_capacity INT NOT NULL DEFAULT 0,
	  capacity_period VARCHAR(16) NULL,
	  last_restored_at DATETIME(6) NULL,
	  available_quantity INT NOT NULL DEFAULT 0,
	  next_available_date DATETIME(6) NULL,
	  is_featured TINYINT(1) NOT NULL DEFAULT 0,
	  is_sponsored TINYINT(1) NOT NULL DEFAULT 0,
	  inventory_version INT NOT NULL DEFAULT 0,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  CONSTRAINT chk_products_stock CHECK (stock >= 0),
	  CONSTRAINT chk_products_capacity CHECK (remaining_capacity >= 0 AND remaining_capacity <= total_capacity),
	  CONSTRAINT chk_products_available CHECK (available_quantity >= 0),
	  INDEX idx_products_seller (seller_id),
	  INDEX idx_products_fulfillment (fulfillment_type)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS promotional_pricing(
	  feature_type VARCHAR(64) PRIMARY KEY,
	  display_name VARCHAR(255) NOT NULL DEFAULT '',
	  base_price DECIMAL(20,2) NOT NULL,
	  price_per_day DECIMAL(20,2) NOT NULL,
	  included_days INT NOT NULL DEFAULT 0,
	  benefits JSON NOT NULL,
	  product_flag VARCHAR(16) NOT NULL DEFAULT 'none',
	  is_active TINYINT(1) NOT NULL DEFAULT 1,
	  updated_by VARCHAR(36) NULL,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS promotional_features(
	  id VARCHAR(36) PRIMARY KEY,
	  seller_id VARCHAR(36) NOT NULL,
	  product_id VARCHAR(36) NOT NULL,
	  feature_type VARCHAR(64) NOT NULL,
	  duration_days INT NOT NULL,
	  price DECIMAL(20,2) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  start_date DATETIME(6) NULL,
	  end_date DATETIME(6) NULL,
	  specifications JSON NOT NULL,
	  rejection_reason TEXT NULL,
	  reviewed_by VARCHAR(36) NULL,
	  product_flag VARCHAR(16) NOT NULL DEFAULT '',
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  INDEX idx_features_status_end (status, end_date),
	  INDEX idx_features_product (product_id),
	  INDEX idx_features_seller (seller_id),
	  CONSTRAINT fk_features_product FOREIGN KEY (product_id) REFERENCES products(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS wallets(
	  seller_id VARCHAR(36) PRIMARY KEY,
	  balance DECIMAL(20,2) NOT NULL DEFAULT 0,
	  version INT NOT NULL DEFAULT 0,
	  created_at DATETIME(6) NOT NULL,
	  updated_at DATETIME(6) NOT NULL,
	  CONSTRAINT chk_wallet_balance CHECK (balance >= 0)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS wallet_transactions(
	  id VARCHAR(36) PRIMARY KEY,
	  seller_id VARCHAR(36) NOT NULL,
	  type VARCHAR(32) NOT NULL,
	  amount DECIMAL(20,2) NOT NULL,
	  balance_after DECIMAL(20,2) NOT NULL,
	  reason VARCHAR(255) NOT NULL DEFAULT '',
	  reference_id VARCHAR(36) NULL,
	  created_at DATETIME(6) NOT NULL,
	  INDEX idx_wallet_tx_seller (seller_id, created_at)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS revenue_records(
	  id VARCHAR(36) PRIMARY KEY,
	  type VARCHAR(32) NOT NULL,
	  gross_amount DECIMAL(20,2) NOT NULL,
	  payment_date DATETIME(6) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  feature_id VARCHAR(36) NOT NULL UNIQUE,
	  seller_id VARCHAR(36) NOT NULL,
	  created_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS admin_audit_log(
	  id VARCHAR(36) PRIMARY KEY,
	  admin_user VARCHAR(36) NOT NULL,
	  action VARCHAR(64) NOT NULL,
	  target_type VARCHAR(64) NOT NULL,
	  target_id VARCHAR(64) NOT NULL,
	  changes JSON NOT NULL,
	  description TEXT NOT NULL,
	  ip_address VARCHAR(64) NOT NULL DEFAULT '',
	  user_agent VARCHAR(512) NOT NULL DEFAULT '',
	  request_id VARCHAR(64) NOT NULL DEFAULT '',
	  created_at DATETIME(6) NOT NULL,
	  INDEX idx_audit_created (created_at),
	  INDEX idx_audit_admin (admin_user)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS notifications(
	  id VARCHAR(36) PRIMARY KEY,
	  user_id VARCHAR(36) NOT NULL,
	  message TEXT NOT NULL,
	  link VARCHAR(512) NULL,
	  is_read TINYINT(1) NOT NULL DEFAULT 0,
	  created_at DATETIME(6) NOT NULL,
	  INDEX idx_notifications_user (user_id, is_read)
	) ENGINE=InnoDB`,
}
